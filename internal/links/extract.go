// Package links pulls HTTPS URLs out of free text.
package links

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const scheme = "https://"

var httpsRe = regexp.MustCompile(`(?i)https://[^\s<>"]+`)

// trailingPunct is stripped from the end of a match. A closing parenthesis is
// handled separately so balanced ones stay part of the URL.
const trailingPunct = `.,;:!?'">]}`

// Extract returns the distinct HTTPS URLs in text, in order of first appearance.
//
// A match runs from "https://" to the next whitespace, '<', '>' or '"'.
// Trailing characters from ".,;:!?'\">]}" are then removed, as is a trailing
// ')' when the URL has more ')' than '('. Duplicates are compared after trimming.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	matches := httpsRe.FindAllString(text, -1)
	cleaned := lo.FilterMap(matches, func(m string, _ int) (string, bool) {
		m = trimTrailing(m)
		return m, len(m) > len(scheme)
	})
	if len(cleaned) == 0 {
		return nil
	}
	return lo.Uniq(cleaned)
}

func trimTrailing(u string) string {
	for {
		prev := u
		u = strings.TrimRight(u, trailingPunct)
		if strings.HasSuffix(u, ")") && strings.Count(u, ")") > strings.Count(u, "(") {
			u = u[:len(u)-1]
		}
		if u == prev {
			return u
		}
	}
}
