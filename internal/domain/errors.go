package domain

import (
	"errors"
	"fmt"
)

// Outcomes of the link pipeline. None of them is fatal; the bot renders each
// one as its own message.
var (
	// ErrInvalidURL means no recognised YouTube URL shape matched.
	ErrInvalidURL = errors.New("not a recognised youtube url")
	// ErrNotFound means the id is well formed but the video is missing, private or restricted.
	ErrNotFound = errors.New("video not found")
	// ErrTransient covers network failures, timeouts and exhausted API quota.
	ErrTransient = errors.New("temporary fetch failure")
	// ErrNoLinks means the description contains no HTTPS links at all.
	ErrNoLinks = errors.New("no links in description")
	// ErrEmptyResult means links were found but the user's filters removed all of them.
	ErrEmptyResult = errors.New("all links filtered out")
)

// FetchError wraps a description fetch failure with the video and backend involved.
//
//	var fe *domain.FetchError
//	if errors.As(err, &fe) && errors.Is(err, domain.ErrNotFound) { ... }
type FetchError struct {
	VideoID VideoID
	// Source names the backend, e.g. "api" or "scrape".
	Source string
	// Kind is ErrNotFound or ErrTransient.
	Kind error
	// Err is the underlying cause, may be nil.
	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s fetch %s: %v", e.Source, e.VideoID, e.Kind)
	}
	return fmt.Sprintf("%s fetch %s: %v: %v", e.Source, e.VideoID, e.Kind, e.Err)
}

// Unwrap exposes both the sentinel kind and the cause to errors.Is/As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound builds a FetchError of kind ErrNotFound.
func NotFound(id VideoID, source string, cause error) *FetchError {
	return &FetchError{VideoID: id, Source: source, Kind: ErrNotFound, Err: cause}
}

// Transient builds a FetchError of kind ErrTransient.
func Transient(id VideoID, source string, cause error) *FetchError {
	return &FetchError{VideoID: id, Source: source, Kind: ErrTransient, Err: cause}
}
