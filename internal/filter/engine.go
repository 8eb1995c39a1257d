package filter

import (
	"strings"

	"tubelinks/internal/domain"
)

// Result is the outcome of Apply.
type Result struct {
	// Kept are the surviving links in input order.
	Kept []string
	// Excluded counts the links removed.
	Excluded int
}

// Apply drops every link whose lowercase form contains one of words.
// words are expected in normalized (lowercase) form, as a Store returns them.
func Apply(links []string, words domain.WordSet) Result {
	res := Result{Kept: make([]string, 0, len(links))}
	for _, link := range links {
		if matches(strings.ToLower(link), words) {
			res.Excluded++
			continue
		}
		res.Kept = append(res.Kept, link)
	}
	return res
}

func matches(link string, words domain.WordSet) bool {
	for _, w := range words {
		if w != "" && strings.Contains(link, w) {
			return true
		}
	}
	return false
}
