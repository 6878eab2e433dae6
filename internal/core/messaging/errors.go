package messaging

import (
	"errors"
	"fmt"
)

// ErrMalformedMessage is matched by every MalformedMessageError.
var ErrMalformedMessage = errors.New("malformed message")

// MalformedMessageError describes a provider entry that is missing required
// fields. Such entries are dropped with a diagnostic, never propagated.
type MalformedMessageError struct {
	ChannelID string
	ID        string
	Reason    string
}

func (e *MalformedMessageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed message in %s: %s", e.ChannelID, e.Reason)
	}
	return fmt.Sprintf("malformed message %s in %s: %s", e.ID, e.ChannelID, e.Reason)
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}
