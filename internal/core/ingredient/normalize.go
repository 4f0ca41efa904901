// Package ingredient normalizes free-form ingredient names and resolves
// them against a catalog, creating new entries when nothing close enough
// exists.
package ingredient

import (
	"regexp"
	"strings"

	"github.com/gertd/go-pluralize"
)

// Preparation words that describe how an ingredient is handled, not what it
// is. Stripping them lets "finely chopped fresh parsley" and "parsley"
// resolve to the same catalog entry.
var prepAdjectives = buildPrepSet(
	// preparation
	"chopped", "minced", "diced", "sliced", "grated", "shredded", "crushed",
	"ground", "peeled", "pitted", "seeded", "cored", "trimmed", "halved",
	"quartered", "cubed", "julienned", "mashed", "pureed", "beaten",
	"whisked", "sifted", "rinsed", "drained", "squeezed", "zested", "juiced",
	"crumbled", "torn", "separated", "divided", "packed", "heaped",
	// state
	"fresh", "freshly", "frozen", "dried", "raw", "cooked", "boiled",
	"steamed", "roasted", "toasted", "grilled", "fried", "sauteed",
	"blanched", "melted", "softened", "chilled", "cold", "warm", "hot",
	"ripe", "unripe", "stale", "day-old", "leftover", "prepared", "canned",
	"tinned", "jarred", "smoked", "cured", "salted", "unsalted", "sweetened",
	"unsweetened",
	// size and quality
	"large", "medium", "small", "big", "thick", "thin", "thinly", "thickly",
	"finely", "coarsely", "roughly", "lightly", "generous", "scant", "whole",
	"half", "extra", "good", "quality", "organic", "optional",
)

func buildPrepSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	// Keep letters (including accented), spaces and hyphens; everything else
	// (digits, emoji, punctuation) goes.
	disallowedRe = regexp.MustCompile(`[^\p{L}\s-]+`)
	// "flour for dusting", "oil for frying".
	trailingForRe = regexp.MustCompile(`\bfor\s+\p{L}[\p{L}\s-]*$`)
	// Fallback for plurals the singularizer does not know (accented words):
	// a vowel followed by a trailing s.
	accentedPluralRe = regexp.MustCompile(`[aeiouáéíóú]s$`)
)

var singularizer = pluralize.NewClient()

// NormalizeName reduces a free-form ingredient line to a canonical name:
// lowercase, no amounts or parentheticals, preparation words removed, final
// word singularized.
func NormalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = disallowedRe.ReplaceAllString(s, " ")
	s = trailingForRe.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "-")
		if w == "" {
			continue
		}
		if _, drop := prepAdjectives[w]; drop {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}

	last := len(kept) - 1
	kept[last] = singular(kept[last])
	return strings.Join(kept, " ")
}

func singular(word string) string {
	if s := singularizer.Singular(word); s != word {
		return s
	}
	// The singularizer only knows English; strip a simple plural "s" from
	// words it leaves alone, such as accented loanwords.
	if len(word) > 3 && accentedPluralRe.MatchString(word) {
		return word[:len(word)-1]
	}
	return word
}
