package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default length bounds, in runes of folded text
const (
	DefaultMinRunes = 2
	DefaultMaxRunes = 5000
)

// Reason explains why a line failed the gate
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonBlank     Reason = "empty text"
	ReasonTooShort  Reason = "text too short"
	ReasonTooLong   Reason = "text too long"
	ReasonNoContent Reason = "no translatable content"
)

// Gate bounds the text accepted for translation
type Gate struct {
	MinRunes int
	MaxRunes int
}

// DefaultGate returns the standard 2..5000 rune gate
func DefaultGate() Gate { return Gate{MinRunes: DefaultMinRunes, MaxRunes: DefaultMaxRunes} }

// Check folds s and reports whether it is worth translating.
// Lines made only of punctuation, or only of numbers, are rejected. Symbols
// and emoji pass
func (g Gate) Check(s string) (bool, Reason) {
	if strings.TrimSpace(s) == "" {
		return false, ReasonBlank
	}
	f := Fold(s)
	if f == "" {
		return false, ReasonBlank
	}
	n := utf8.RuneCountInString(f)
	if g.MinRunes > 0 && n < g.MinRunes {
		return false, ReasonTooShort
	}
	if g.MaxRunes > 0 && n > g.MaxRunes {
		return false, ReasonTooLong
	}
	if OnlyPunct(f) || OnlyNumber(f) {
		return false, ReasonNoContent
	}
	return true, ReasonNone
}

// OnlyPunct reports whether s holds nothing but punctuation and whitespace
func OnlyPunct(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPunct(r) && !unicode.IsSpace(r) }) < 0
}

// OnlyNumber reports whether s is digits with optional separators, e.g. "12.5, 3"
func OnlyNumber(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && !unicode.IsSpace(r) && r != '.' && r != ','
	}) < 0
}
