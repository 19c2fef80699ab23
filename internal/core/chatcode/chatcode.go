// Package chatcode classifies raw chat channel codes.
//
// A code is 16 bits: the low 15 bits select the channel, and bits 7-8 carry
// the source flag (self, party, alliance, other). Classification works on
// the channel and is total: every value resolves to exactly one Category.
package chatcode

import (
	"fmt"
	"strings"
)

// Code is a raw chat code as delivered by the event source
type Code uint16

// Channel returns the 15-bit channel code
func (c Code) Channel() uint16 { return uint16(c) & 0x7FFF }

// Source returns the 2-bit source flag
func (c Code) Source() Source { return Source((uint16(c) >> 7) & 0x3) }

// Info returns the classification of c
func (c Code) Info() Info { return Classify(c) }

// Source says who the line came from relative to the local player
type Source uint8

const (
	SourceSelf Source = iota
	SourceParty
	SourceAlliance
	SourceOther
)

func (s Source) String() string {
	switch s {
	case SourceSelf:
		return "self"
	case SourceParty:
		return "party"
	case SourceAlliance:
		return "alliance"
	default:
		return "other"
	}
}

// Category is the coarse classification used by policy toggles
type Category uint8

const (
	Other Category = iota
	Player
	Npc
	System
	Emote
	Battle
	Gm
)

var categoryNames = [...]string{"other", "player", "npc", "system", "emote", "battle", "gm"}

// Categories lists every category in declaration order
func Categories() []Category { return []Category{Other, Player, Npc, System, Emote, Battle, Gm} }

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory parses a category name case-insensitively
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == s {
			return Category(i), true
		}
	}
	return Other, false
}

// MarshalText implements encoding.TextMarshaler so categories work as JSON and YAML map keys
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(b []byte) error {
	v, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("chatcode: unknown category %q", string(b))
	}
	*c = v
	return nil
}

// Info is everything derived from a channel code
type Info struct {
	Channel      uint16   `json:"channel"`
	Category     Category `json:"category"`
	Translatable bool     `json:"translatable"`
	Name         string   `json:"name"`
	// Parent is the civilian channel for GM variants and the gain code for
	// buff/debuff loss codes; every other channel is its own parent
	Parent uint16 `json:"parent"`
	// Key names the per-channel toggle, shared by a channel and its GM variant
	Key string `json:"key"`
}
