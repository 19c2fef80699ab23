package chatcode

import (
	"fmt"
	"sort"
)

const (
	gmFirst = 80
	gmLast  = 94
)

type spec struct {
	name   string
	cat    Category
	parent uint16 // zero means self
	key    string
}

// standard holds the enumerated channels. Translatability is kept separate
// in translatable so the two sets can be audited independently
var standard = map[uint16]spec{
	0:   {name: "None", cat: Other, key: "None"},
	1:   {name: "Debug", cat: Other, key: "Debug"},
	2:   {name: "Urgent", cat: Other, key: "Urgent"},
	3:   {name: "Notice", cat: System, key: "Notice"},
	10:  {name: "Say", cat: Player, key: "Say"},
	11:  {name: "Shout", cat: Player, key: "Shout"},
	12:  {name: "Tell", cat: Player, key: "Tell"},
	13:  {name: "Tell", cat: Player, key: "Tell"},
	14:  {name: "Party", cat: Player, key: "Party"},
	15:  {name: "Alliance", cat: Player, key: "Alliance"},
	24:  {name: "Free Company", cat: Player, key: "FreeCompany"},
	27:  {name: "Novice Network", cat: Player, key: "NoviceNetwork"},
	28:  {name: "Emote", cat: Emote, key: "Emote"},
	29:  {name: "Emote", cat: Emote, key: "Emote"},
	30:  {name: "Yell", cat: Player, key: "Yell"},
	32:  {name: "Cross Party", cat: Player, key: "CrossParty"},
	36:  {name: "PvP Team", cat: Player, key: "PvPTeam"},
	37:  {name: "CWLS1", cat: Player, key: "CrossworldLinkshell1"},
	55:  {name: "Alarm", cat: System, parent: 57, key: "System"},
	56:  {name: "Echo", cat: Other, key: "Echo"},
	57:  {name: "System", cat: System, key: "System"},
	59:  {name: "System", cat: System, key: "Gathering"},
	60:  {name: "Error", cat: Other, key: "Error"},
	61:  {name: "NPC", cat: Npc, key: "NPC"},
	68:  {name: "NPC", cat: Npc, parent: 61, key: "NPC"},
	71:  {name: "Retainer", cat: System, parent: 57, key: "System"},
	80:  {name: "GM-Tell", cat: Gm, parent: 12},
	81:  {name: "GM-Say", cat: Gm, parent: 10},
	82:  {name: "GM-Shout", cat: Gm, parent: 11},
	83:  {name: "GM-Yell", cat: Gm, parent: 30},
	84:  {name: "GM-Party", cat: Gm, parent: 14},
	85:  {name: "GM-Free Company", cat: Gm, parent: 24},
	94:  {name: "GM-Novice Network", cat: Gm, parent: 27},
	101: {name: "CWLS2", cat: Player, key: "CrossworldLinkshell2"},
}

// translatable is the standard translatable set plus the additional numeric
// set (GM variants and cross party)
var translatable = map[uint16]bool{
	10: true, 11: true, 12: true, 13: true, 14: true, 15: true,
	24: true, 27: true, 28: true, 29: true, 30: true, 32: true, 36: true, 37: true,
}

var battle = map[uint16]bool{41: true, 42: true, 43: true, 44: true, 45: true, 46: true, 47: true, 48: true, 49: true, 58: true}

func init() {
	for i := uint16(0); i < 8; i++ {
		ls := fmt.Sprintf("Linkshell%d", i+1)
		standard[16+i] = spec{name: ls, cat: Player, key: ls}
		standard[86+i] = spec{name: "GM-" + ls, cat: Gm, parent: 16 + i}
		translatable[16+i] = true
	}
	for i := uint16(0); i < 6; i++ {
		n := i + 3
		standard[102+i] = spec{name: fmt.Sprintf("CWLS%d", n), cat: Player, key: fmt.Sprintf("CrossworldLinkshell%d", n)}
	}
	for c := uint16(101); c <= 107; c++ {
		translatable[c] = true
	}
	for c := uint16(gmFirst); c <= gmLast; c++ {
		translatable[c] = true
	}
	for c := range table {
		table[c] = classifyChannel(uint16(c))
	}
}

// table is the resolved classification for every channel
var table [1 << 15]Info

// classifyChannel resolves one channel: GM range, then battle, then the
// enumerated channels, then Other
func classifyChannel(ch uint16) Info {
	in := Info{Channel: ch, Category: Other, Name: "Unknown", Parent: ch}

	switch {
	case ch >= gmFirst && ch <= gmLast:
		s, ok := standard[ch]
		if !ok {
			in.Category, in.Name = Gm, "GM-Other"
			return in
		}
		in.Category, in.Name, in.Parent = Gm, s.name, s.parent
		in.Translatable = translatable[ch]
		in.Key = standard[s.parent].key
		return in

	case battle[ch]:
		in.Category, in.Name, in.Key = Battle, "Battle", "Battle"
		switch ch {
		case 48:
			in.Parent = 46
		case 49:
			in.Parent = 47
		}
		return in
	}

	if s, ok := standard[ch]; ok {
		in.Category, in.Name, in.Key = s.cat, s.name, s.key
		if s.parent != 0 {
			in.Parent = s.parent
		}
		in.Translatable = translatable[ch]
	}
	return in
}

// Classify returns the classification of a raw code. It is total and pure
func Classify(c Code) Info { return table[c.Channel()] }

// IsTranslatable reports whether lines on c may be sent for translation
func IsTranslatable(c Code) bool { return Classify(c).Translatable }

// CategoryOf returns the category of c
func CategoryOf(c Code) Category { return Classify(c).Category }

// Table lists every channel with an explicit classification, ordered by channel
func Table() []Info {
	out := make([]Info, 0, len(standard)+len(battle))
	for ch := range table {
		in := table[ch]
		if in.Name != "Unknown" {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
