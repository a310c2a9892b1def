package delivery

import (
	"errors"
	"fmt"
)

var (
	ErrQueueFull      = errors.New("delivery queue is full")
	ErrClientClosed   = errors.New("delivery client is draining or closed")
	ErrConnectionLost = errors.New("broker connection lost")

	ErrTransientDelivery = errors.New("transient delivery failure")
	ErrPermanentDelivery = errors.New("permanent delivery failure")
)

// TransientDeliveryError is retried with backoff.
type TransientDeliveryError struct {
	Op  string
	Err error
}

func (e *TransientDeliveryError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrTransientDelivery, e.Op, e.Err)
}

func (e *TransientDeliveryError) Unwrap() error {
	return e.Err
}

func (e *TransientDeliveryError) Is(target error) bool {
	return target == ErrTransientDelivery
}

// PermanentDeliveryError is returned once the retry budget is exhausted or the
// broker rejected the batch outright.
type PermanentDeliveryError struct {
	Attempts int
	Err      error
}

func (e *PermanentDeliveryError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrPermanentDelivery, e.Attempts, e.Err)
}

func (e *PermanentDeliveryError) Unwrap() error {
	return e.Err
}

func (e *PermanentDeliveryError) Is(target error) bool {
	return target == ErrPermanentDelivery
}

type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }
func (e *unrecoverableError) Unwrap() error { return e.err }

// Unrecoverable marks a publish error that retrying cannot fix, such as a message
// rejected for its size.  The batch goes straight to the dead-letter sink.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

func IsUnrecoverable(err error) bool {
	var u *unrecoverableError
	return errors.As(err, &u)
}
