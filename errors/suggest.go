package errors

import (
	"sort"
	"strings"
)

// MaxSuggestions is the maximum number of suggestions to return.
const MaxSuggestions = 3

// Suggestion represents a suggested correction with its edit distance.
type Suggestion struct {
	Value    string
	Distance int
}

// SuggestSimilar finds candidates similar to target, closest first. The
// allowed edit distance scales with the length of the target so that very
// short names only match near-exact candidates.
func SuggestSimilar(target string, candidates []string) []Suggestion {
	if target == "" || len(candidates) == 0 {
		return nil
	}
	lowered := strings.ToLower(target)
	threshold := 3
	if len(lowered) <= 3 {
		threshold = 1
	} else if len(lowered) <= 5 {
		threshold = 2
	}

	var suggestions []Suggestion
	for _, candidate := range candidates {
		if candidate == "" || strings.ToLower(candidate) == lowered {
			continue
		}
		dist := editDistance(lowered, strings.ToLower(candidate))
		if dist <= threshold {
			suggestions = append(suggestions, Suggestion{Value: candidate, Distance: dist})
		}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		return suggestions[i].Value < suggestions[j].Value
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// FormatSuggestions formats suggestions as a user-facing hint, or returns
// an empty string if there are none.
func FormatSuggestions(suggestions []Suggestion) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "Did you mean '" + suggestions[0].Value + "'?"
	}
	values := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		values = append(values, "'"+s.Value+"'")
	}
	return "Did you mean one of: " + strings.Join(values, ", ") + "?"
}

// editDistance computes the Levenshtein distance between two strings
// using a single rolling row.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cell := row[j]
			row[j] = minOf(row[j]+1, row[j-1]+1, prev+cost)
			prev = cell
		}
	}
	return row[len(rb)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
