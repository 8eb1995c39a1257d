package bot

import (
	"errors"
	"fmt"
	"strings"

	"tubelinks/internal/domain"
	"tubelinks/internal/pipeline"
)

// maxMessageLen stays below Telegram's 4096 character limit.
const maxMessageLen = 4000

const helpText = `🎥 YouTube Link Extractor

Send me a YouTube video URL and I'll reply with the HTTPS links from its description.
Links containing one of your filter words are left out.

Commands:
/filter <words> - replace your filter words (no words: show them)
/addfilter <word> - add a filter word
/removefilter <word> - remove a filter word
/showfilter - show your filter words
/clearfilter - remove all filter words
/resetfilters - restore the default filter words
/help - show this message

Example: https://youtu.be/dQw4w9WgXcQ`

const invalidURLText = `❌ Please send a valid YouTube video URL.

Supported formats:
• https://www.youtube.com/watch?v=VIDEO_ID
• https://youtu.be/VIDEO_ID
• https://www.youtube.com/embed/VIDEO_ID
• https://www.youtube.com/shorts/VIDEO_ID`

// formatOutcome renders the links of a successful run, split into messages
// that fit Telegram's size limit.
func formatOutcome(out pipeline.Outcome, maxLinks int) []string {
	shown := out.Links
	if len(shown) > maxLinks {
		shown = shown[:maxLinks]
	}

	header := fmt.Sprintf("🔗 Found %d HTTPS link(s)", len(out.Links))
	if out.Title != "" {
		header += fmt.Sprintf(" in “%s”", out.Title)
	}
	lines := []string{header + ":", ""}
	for i, link := range shown {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, link))
	}
	if rest := len(out.Links) - len(shown); rest > 0 {
		lines = append(lines, "", fmt.Sprintf("... and %d more links", rest))
	}
	if out.Excluded > 0 {
		lines = append(lines, "", fmt.Sprintf("🔒 %d link(s) filtered out", out.Excluded))
		lines = append(lines, fmt.Sprintf("📊 Total found: %d, Shown: %d", out.Total, len(shown)))
	}
	return splitMessage(lines, maxMessageLen)
}

// errorText maps a pipeline failure onto the message shown to the user.
func errorText(err error, out pipeline.Outcome) string {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return invalidURLText
	case errors.Is(err, domain.ErrNotFound):
		return "❌ Video not found. It might be private, deleted or restricted."
	case errors.Is(err, domain.ErrTransient):
		return "⚠️ Couldn't reach YouTube right now. Please try again later."
	case errors.Is(err, domain.ErrNoLinks):
		return "ℹ️ No HTTPS links found in this video's description."
	case errors.Is(err, domain.ErrEmptyResult):
		return fmt.Sprintf("ℹ️ No links to display after applying filters.\n\n🔒 All %d link(s) were filtered out based on your settings.\n\nUse /showfilter to check your filter words.", out.Excluded)
	default:
		return "❌ An unexpected error occurred. Please try again later."
	}
}

// filterStatus lists a user's filter words.
func filterStatus(words domain.WordSet) string {
	if len(words) == 0 {
		return "🔓 No filters active. All HTTPS links will be shown."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔒 %d filter(s) active\n\nExcluded keywords:\n", len(words))
	for _, w := range words {
		fmt.Fprintf(&b, "• %s\n", w)
	}
	b.WriteString("\nLinks containing these keywords are excluded from results.")
	return b.String()
}

// splitMessage joins lines with newlines into chunks of at most limit bytes.
// A single line longer than limit is cut into pieces.
func splitMessage(lines []string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.Trim(cur.String(), "\n"); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}
	for _, line := range lines {
		for len(line) > limit {
			flush()
			cut := safeCut(line, limit)
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line)+1 > limit {
			flush()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	return chunks
}

// safeCut returns the largest index <= n that does not split a UTF-8 sequence.
func safeCut(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return n
}
