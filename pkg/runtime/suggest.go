package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestions caps how many "did you mean" lines an error carries.
const maxSuggestions = 3

// SimilarIdentifiers returns keys from candidates ranked by similarity to
// name. Matching is typo-tolerant: exact matches after case folding or
// hyphen/underscore normalization rank first, then substring containment,
// then small edit distances.
func SimilarIdentifiers(name string, candidates []string) []string {
	type scored struct {
		key  string
		rank int
	}
	normalize := func(s string) string {
		return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
	}
	nameLower := strings.ToLower(name)
	nameNorm := normalize(name)

	var matches []scored
	for _, key := range candidates {
		if key == name {
			continue
		}
		keyLower := strings.ToLower(key)
		keyNorm := normalize(key)
		switch {
		case nameLower == keyLower || nameNorm == keyNorm:
			matches = append(matches, scored{key, 0})
		case strings.Contains(keyLower, nameLower) || strings.Contains(nameLower, keyLower):
			matches = append(matches, scored{key, 1})
		default:
			if d := levenshtein.ComputeDistance(nameLower, keyLower); d <= 2 && d < len(name) {
				matches = append(matches, scored{key, 1 + d})
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, m.key)
	}
	return keys
}

// suggestCorrections builds "did you mean" lines for unresolved variables.
// The base identifier of each dotted path is compared against the available
// context keys; the suggested replacement keeps the rest of the path.
func suggestCorrections(variables []string, availableKeys []string) []string {
	var suggestions []string
	for _, variable := range variables {
		base, rest, hasRest := strings.Cut(variable, ".")
		similar := SimilarIdentifiers(base, availableKeys)
		if len(similar) == 0 {
			continue
		}
		corrected := similar[0]
		if hasRest {
			corrected += "." + rest
		}
		suggestions = append(suggestions,
			fmt.Sprintf("Did you mean '${%s}'? (instead of '${%s}')", corrected, variable))
		if len(suggestions) >= maxSuggestions {
			break
		}
	}
	return suggestions
}
