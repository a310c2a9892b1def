package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedEvent = errors.New("malformed host event")

	// ErrEventFiltered marks events that are deliberately not forwarded.
	ErrEventFiltered = errors.New("host event filtered")

	ErrUserNotFound = errors.New("user not found")
)

type AdapterError struct {
	Field  string
	Reason string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrMalformedEvent, e.Field, e.Reason)
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrMalformedEvent
}

func filtered(eventType string) error {
	return fmt.Errorf("%w: %s", ErrEventFiltered, eventType)
}
