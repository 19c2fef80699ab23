// Package payload reduces rich chat payloads to plain text for translation and
// wraps a translation back into the original non-text segments for display.
//
// A chat line is a sequence of segments. Text and auto-translate phrases carry
// readable text; player, item, icon and map link segments are references the
// client renders itself and must survive translation untouched.
package payload

import (
	"fmt"
	"strings"
)

// Kind tags a segment
type Kind string

const (
	KindText          Kind = "text"
	KindAutoTranslate Kind = "autotranslate"
	KindPlayer        Kind = "player"
	KindItem          Kind = "item"
	KindIcon          Kind = "icon"
	KindMapLink       Kind = "maplink"
)

// Segment is one element of a rich chat line
type Segment struct {
	Kind Kind   `json:"kind" validate:"required,oneof=text autotranslate player item icon maplink"`
	Text string `json:"text,omitempty"`
	// ID is the row id of an item, icon or map link
	ID uint32 `json:"id,omitempty"`
}

// Text builds a plain text segment
func Text(s string) Segment { return Segment{Kind: KindText, Text: s} }

// readable reports whether the segment contributes text the engine should see
func (s Segment) readable() bool { return s.Kind == KindText || s.Kind == KindAutoTranslate }

// Symbol is the bracketed placeholder used for references when symbols are included
func (s Segment) Symbol() string {
	switch s.Kind {
	case KindItem:
		return fmt.Sprintf("[Item:%d]", s.ID)
	case KindMapLink:
		return fmt.Sprintf("[Map:%d]", s.ID)
	case KindIcon:
		return fmt.Sprintf("[%d]", s.ID)
	case KindPlayer:
		return s.Text
	}
	return s.Text
}

// Options controls Extract
type Options struct {
	// IncludeSymbols renders item, icon and map link references as placeholders
	IncludeSymbols bool
	// PreserveAutoTranslate keeps auto-translate phrases in the extracted text
	PreserveAutoTranslate bool
	// StripPlayers drops player names
	StripPlayers bool
	// StripItems drops item references even when symbols are included
	StripItems bool
}

// DefaultOptions keeps auto-translate phrases and drops symbols
func DefaultOptions() Options { return Options{PreserveAutoTranslate: true} }

// Extract returns the plain text of segs, trimmed
func Extract(segs []Segment, o Options) string {
	if len(segs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range segs {
		switch s.Kind {
		case KindText:
			b.WriteString(s.Text)
		case KindAutoTranslate:
			if o.PreserveAutoTranslate {
				b.WriteString(s.Text)
			}
		case KindPlayer:
			if !o.StripPlayers {
				b.WriteString(s.Text)
			}
		case KindItem:
			if o.IncludeSymbols && !o.StripItems {
				b.WriteString(s.Symbol())
			}
		case KindIcon, KindMapLink:
			if o.IncludeSymbols {
				b.WriteString(s.Symbol())
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Compose wraps translated in the leading and trailing non-text segments of
// original. Readable segments in between are replaced by the translation
func Compose(translated string, original []Segment) []Segment {
	first, last := -1, -1
	for i, s := range original {
		if s.readable() {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		out := make([]Segment, 0, len(original)+1)
		out = append(out, original...)
		return append(out, Text(translated))
	}
	out := make([]Segment, 0, first+1+len(original)-last-1)
	out = append(out, original[:first]...)
	out = append(out, Text(translated))
	return append(out, original[last+1:]...)
}

// Render flattens segments for a plain text display, references as placeholders
func Render(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.readable() {
			b.WriteString(s.Text)
			continue
		}
		b.WriteString(s.Symbol())
	}
	return b.String()
}

// Players lists distinct non-blank player names in order of appearance
func Players(segs []Segment) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range segs {
		if s.Kind != KindPlayer || strings.TrimSpace(s.Text) == "" || seen[s.Text] {
			continue
		}
		seen[s.Text] = true
		out = append(out, s.Text)
	}
	return out
}

// HasAutoTranslate reports whether segs contain an auto-translate phrase
func HasAutoTranslate(segs []Segment) bool {
	for _, s := range segs {
		if s.Kind == KindAutoTranslate {
			return true
		}
	}
	return false
}
