package stream

import (
	"errors"
	"fmt"
)

// ErrFetch is matched by every FetchError.
var ErrFetch = errors.New("fetch history")

// FetchError reports a failed page request. It terminates only the channel it
// belongs to.
type FetchError struct {
	ChannelID string
	Cursor    string
	Err       error
}

func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("fetch history for %s: %v", e.ChannelID, e.Err)
	}
	return fmt.Sprintf("fetch history for %s at cursor %s: %v", e.ChannelID, e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
