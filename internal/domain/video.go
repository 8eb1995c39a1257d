package domain

// VideoID is the canonical 11-character YouTube video identifier.
type VideoID string

// UserID is the Telegram user ID of the person talking to the bot.
type UserID int64

// Video holds the metadata fetched for a single video.
type Video struct {
	// ID is the video identifier the metadata was fetched for.
	ID VideoID `json:"id"`

	// Title is shown in the reply header. May be empty for scraped videos.
	Title string `json:"title"`

	// Description is the raw description text, returned verbatim. May be empty.
	Description string `json:"description"`
}

// WordSet is a user's list of filter words.
// Words are lowercase, trimmed, non-empty and unique; insertion order is kept.
type WordSet []string

// Contains reports whether word is in the set.
func (s WordSet) Contains(word string) bool {
	for _, w := range s {
		if w == word {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with s.
func (s WordSet) Clone() WordSet {
	if s == nil {
		return WordSet{}
	}
	out := make(WordSet, len(s))
	copy(out, s)
	return out
}
