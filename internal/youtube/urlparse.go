// Package youtube recognises YouTube video URLs and extracts their video IDs.
package youtube

import (
	"regexp"
	"strings"

	"tubelinks/internal/domain"
)

// Rule tries to match one URL shape.
type Rule interface {
	// Name identifies the rule in logs and tests.
	Name() string
	// Match returns the video ID when raw has the rule's shape.
	Match(raw string) (domain.VideoID, bool)
}

// PatternRule is a Rule backed by a regular expression with a named "id" group.
type PatternRule struct {
	name string
	re   *regexp.Regexp
	idx  int
}

// NewPatternRule compiles pattern. It panics if the pattern is invalid or has
// no "id" group, so it is meant for package-level rule tables.
func NewPatternRule(name, pattern string) PatternRule {
	re := regexp.MustCompile(pattern)
	idx := re.SubexpIndex("id")
	if idx < 0 {
		panic("youtube: rule " + name + " has no id group")
	}
	return PatternRule{name: name, re: re, idx: idx}
}

func (r PatternRule) Name() string { return r.name }

func (r PatternRule) Match(raw string) (domain.VideoID, bool) {
	m := r.re.FindStringSubmatch(raw)
	if m == nil || m[r.idx] == "" {
		return "", false
	}
	return domain.VideoID(m[r.idx]), true
}

const (
	scheme  = `(?:https?://)?`
	videoID = `(?P<id>[\w-]{11})`
	// idEnd stops a longer token from passing as an 11-character ID.
	idEnd = `(?:[?&#/]|$)`
)

// DefaultRules lists the supported shapes. Order matters: the first match wins.
var DefaultRules = []Rule{
	NewPatternRule("watch", `(?i)^`+scheme+`(?:(?:www|m|music)\.)?youtube\.com/watch/?\?(?:[^#\s]*&)?v=`+videoID+`(?:[&#]|$)`),
	NewPatternRule("short", `(?i)^`+scheme+`(?:www\.)?youtu\.be/`+videoID+idEnd),
	NewPatternRule("embed", `(?i)^`+scheme+`(?:(?:www|m)\.)?youtube(?:-nocookie)?\.com/embed/`+videoID+idEnd),
	NewPatternRule("legacy", `(?i)^`+scheme+`(?:(?:www|m)\.)?youtube\.com/v/`+videoID+idEnd),
	NewPatternRule("shorts", `(?i)^`+scheme+`(?:(?:www|m)\.)?youtube\.com/(?:shorts|live)/`+videoID+idEnd),
}

// Parser applies an ordered list of rules.
type Parser struct {
	rules []Rule
}

// NewParser returns a parser using rules in the given order.
func NewParser(rules ...Rule) *Parser {
	return &Parser{rules: rules}
}

// ExtractVideoID returns the ID of the first rule matching raw.
// Leading and trailing whitespace is ignored.
func (p *Parser) ExtractVideoID(raw string) (domain.VideoID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, r := range p.rules {
		if id, ok := r.Match(raw); ok {
			return id, true
		}
	}
	return "", false
}

// FindVideoID scans a chat message token by token and returns the first
// recognised video ID. Brackets, quotes and sentence punctuation around a
// token are ignored.
func (p *Parser) FindVideoID(text string) (domain.VideoID, bool) {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, `<>()[]"'.,;!?`)
		if id, ok := p.ExtractVideoID(tok); ok {
			return id, true
		}
	}
	return "", false
}

var defaultParser = NewParser(DefaultRules...)

// ExtractVideoID uses DefaultRules.
func ExtractVideoID(raw string) (domain.VideoID, bool) {
	return defaultParser.ExtractVideoID(raw)
}

// FindVideoID uses DefaultRules.
func FindVideoID(text string) (domain.VideoID, bool) {
	return defaultParser.FindVideoID(text)
}
