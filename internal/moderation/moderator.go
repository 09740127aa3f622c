// Package moderation masks censored words in chat text.
package moderation

import (
	"errors"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

var ErrNoWords = errors.New("moderation: empty word list")

// Moderator matches a fixed word list with an Aho-Corasick automaton over a
// normalized form of the text, so "B.4.d" still matches "bad".
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// New builds a Moderator for words. Blank entries are ignored.
func New(words []string, mask rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if p := normalizeRunes([]rune(w)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, ErrNoWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor replaces every matched span of the original text with the mask
// rune. Characters outside matches, spacing included, are left untouched.
func (m *Moderator) Censor(original string) string {
	norm, origIdx := normalize(original)
	if len(norm) == 0 {
		return original
	}
	hits := m.matcher.MultiPatternSearch(norm, false)
	if len(hits) == 0 {
		return original
	}

	out := []rune(original)
	for _, h := range hits {
		start, end := h.Pos, h.Pos+len(h.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			out[i] = m.mask
		}
	}
	return string(out)
}

// normalize returns the searchable runes of s and, for each, its index in s.
func normalize(s string) ([]rune, []int) {
	runes := []rune(s)
	norm := make([]rune, 0, len(runes))
	idx := make([]int, 0, len(runes))
	for i, r := range runes {
		c := simplify(r)
		if isNoise(c) {
			continue
		}
		norm = append(norm, unicode.ToLower(c))
		idx = append(idx, i)
	}
	return norm, idx
}

func normalizeRunes(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		c := simplify(r)
		if isNoise(c) {
			continue
		}
		out = append(out, unicode.ToLower(c))
	}
	return out
}

// simplify undoes common leet substitutions.
func simplify(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
