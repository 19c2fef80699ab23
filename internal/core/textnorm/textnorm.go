// Package textnorm normalizes chat text for cache fingerprints and gates
// text that is not worth sending to a translation engine.
//
// Fold pipeline
// 1 drop invalid UTF-8 and control characters (tab and newlines survive to step 4)
// 2 NFC composition
// 3 remove format characters (ZWSP, ZWJ, BOM, ...)
// 4 map ideographic space U+3000 to ASCII space, then collapse whitespace runs and trim
// 5 collapse runs of the same terminal punctuation ("!!!" -> "!")
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func isStrayControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t'
}

var sanitizePool = sync.Pool{
	New: func() any {
		return runes.Remove(runes.Predicate(isStrayControl))
	},
}

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.Predicate(isStrayControl)),
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)),
			runes.Map(func(r rune) rune {
				if r == '\u3000' {
					return ' '
				}
				return r
			}),
		)
	},
}

func apply(p *sync.Pool, s string) string {
	tr := p.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	p.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// Sanitize drops invalid UTF-8 and control characters other than tab and newlines
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	return apply(&sanitizePool, strings.ToValidUTF8(s, ""))
}

// Fold returns the canonical form used for cache fingerprints, so
// whitespace and punctuation variants of one line share an entry
func Fold(s string) string {
	if s == "" {
		return s
	}
	s = apply(&foldPool, strings.ToValidUTF8(s, ""))
	return collapseTerminal(collapseSpace(s))
}

// Clean is the display-safe form of a chat line: sanitized, whitespace collapsed
func Clean(s string) string {
	return collapseSpace(Sanitize(strings.ReplaceAll(s, "\u3000", " ")))
}

// collapseSpace turns every whitespace run into one ASCII space and trims the ends
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

// collapseTerminal keeps one rune from each run of an identical terminal mark
func collapseTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		if isTerminal(r) && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
