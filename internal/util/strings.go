// Package util provides small string helpers shared by the CLI commands.
package util

import (
	"sort"
	"strings"
)

// JoinOrNone joins strings with ", " or returns "(none)" for empty slices.
func JoinOrNone(items []string) string {
	return JoinOrDefault(items, "(none)")
}

// JoinOrDefault joins strings with ", " or returns the default value for empty slices.
func JoinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

// LevenshteinDistance returns the number of single-character edits needed to
// turn a into b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

// SuggestSimilar returns the candidates within maxDist edits of input,
// ignoring case, closest first. An exact match is returned on its own.
func SuggestSimilar(input string, candidates []string, maxDist int) []string {
	if input == "" || len(candidates) == 0 {
		return nil
	}
	in := strings.ToLower(input)

	type scored struct {
		name string
		dist int
	}
	var matches []scored
	for _, c := range candidates {
		d := LevenshteinDistance(in, strings.ToLower(c))
		if d == 0 {
			return []string{c}
		}
		if d <= maxDist {
			matches = append(matches, scored{c, d})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
