// Package moderation censors blacklisted words in outgoing text
// messages. Matching is resilient to leet speak and punctuation tricks:
// the input is normalized before the automaton scan, and matches are
// masked back at their original positions.
package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator wraps an Aho-Corasick automaton built over normalized
// patterns. It is immutable after construction and safe for concurrent
// use.
type Moderator struct {
	log       *slog.Logger
	matcher   *goahocorasick.Machine
	mask      rune
	languages []string
	words     int
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automaton from a normalized version of the
// word list. Words that normalize to nothing are skipped.
func NewModerator(list *Wordlist, mask rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(list.Words))
	for _, word := range list.Words {
		if normalized := normalizeRunes([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{
		log:       log,
		matcher:   machine,
		mask:      mask,
		languages: list.Languages,
		words:     len(list.Words),
	}, nil
}

// Languages lists the dictionary languages the moderator was built from.
func (m *Moderator) Languages() []string {
	return m.languages
}

// Words reports how many censored patterns were loaded.
func (m *Moderator) Words() int {
	return m.words
}

// Censor replaces every span matching a forbidden pattern with the mask
// character and returns the normalized words that matched. The whole
// original span is masked, evasion characters included; text between
// two matches is left untouched.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var matched []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)

		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		matched = append(matched, string(span.Word))

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1

		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.mask
		}
	}

	if len(matched) > 0 {
		m.log.Debug("Censored forbidden words", "count", len(matched))
	}
	return string(origRunes), matched
}

// normalize lowercases and de-leets the input while keeping, for every
// kept rune, its index in the original string.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
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

// isNoise identifies characters ignored during the matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

// Language guesses the ISO 639-1 code of the text. It returns an empty
// string when the detection is not reliable enough to act on.
func Language(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
