// Package langhint guesses the source language of a chat line from its script.
// It only answers when the script is decisive; everything else stays "auto"
// and is left to the translation engine.
package langhint

import (
	"unicode"
)

// Auto is the source language placeholder that lets the engine detect
const Auto = "auto"

// DefaultMinLetters is the letter count below which no language is emitted
const DefaultMinLetters = 4

type counts struct {
	latin, cyrillic, greek, han, hira, kata, hangul int
	arabic, hebrew, thai, devanagari                int
	letters                                         int
}

func count(s string) counts {
	var c counts
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		c.letters++
		switch {
		case unicode.In(r, unicode.Hangul):
			c.hangul++
		case unicode.In(r, unicode.Hiragana):
			c.hira++
		case unicode.In(r, unicode.Katakana):
			c.kata++
		case unicode.In(r, unicode.Han):
			c.han++
		case unicode.In(r, unicode.Arabic):
			c.arabic++
		case unicode.In(r, unicode.Hebrew):
			c.hebrew++
		case unicode.In(r, unicode.Thai):
			c.thai++
		case unicode.In(r, unicode.Greek):
			c.greek++
		case unicode.In(r, unicode.Cyrillic):
			c.cyrillic++
		case unicode.In(r, unicode.Devanagari):
			c.devanagari++
		case unicode.In(r, unicode.Latin):
			c.latin++
		}
	}
	return c
}

// Script returns the predominant script name of s, or "" when s has no letters.
// Ties prefer the more specific script over Latin
func Script(s string) string {
	c := count(s)
	cands := []struct {
		name string
		n    int
	}{
		{"Hiragana", c.hira},
		{"Katakana", c.kata},
		{"Hangul", c.hangul},
		{"Han", c.han},
		{"Arabic", c.arabic},
		{"Hebrew", c.hebrew},
		{"Thai", c.thai},
		{"Greek", c.greek},
		{"Cyrillic", c.cyrillic},
		{"Devanagari", c.devanagari},
		{"Latin", c.latin},
	}
	best, n := "", 0
	for _, cd := range cands {
		if cd.n > n {
			best, n = cd.name, cd.n
		}
	}
	return best
}

// Detector emits a BCP-47 code only for scripts that identify one language
type Detector struct {
	MinLetters int
}

// New returns a Detector; minLetters <= 0 uses DefaultMinLetters
func New(minLetters int) Detector {
	if minLetters <= 0 {
		minLetters = DefaultMinLetters
	}
	return Detector{MinLetters: minLetters}
}

// Detect returns the language of s, or "" when the script is ambiguous
// (Latin, Han alone, Cyrillic, Devanagari) or s is too short
func (d Detector) Detect(s string) string {
	c := count(s)
	if c.letters < d.MinLetters {
		return ""
	}
	switch {
	// kana is decisive even when mixed with Han
	case c.hira > 0 || c.kata > 0:
		return "ja"
	case c.hangul > 0:
		return "ko"
	case c.arabic > 0:
		return "ar"
	case c.hebrew > 0:
		return "he"
	case c.thai > 0:
		return "th"
	case c.greek > 0:
		return "el"
	}
	return ""
}

// ResolveSource keeps an explicit source and only replaces "auto" (or empty)
// when Detect is decisive
func (d Detector) ResolveSource(src, text string) string {
	if src != "" && src != Auto {
		return src
	}
	if lang := d.Detect(text); lang != "" {
		return lang
	}
	return Auto
}
