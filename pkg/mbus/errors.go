package mbus

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("mbus: not initialized")
	ErrAlreadyInitialized = errors.New("mbus: already initialized")
	ErrInvalidArgument    = errors.New("mbus: invalid argument")
	ErrNotFound           = errors.New("mbus: no value published")
	ErrTimeout            = errors.New("mbus: receive timed out")
	ErrShuttingDown       = errors.New("mbus: shutting down")
	ErrResourceExhausted  = errors.New("mbus: resource exhausted")
	ErrClosed             = errors.New("mbus: handle closed")
)

// OpError связывает ошибку с операцией и темой, на которой она произошла.
type OpError struct {
	Op    string
	Topic string
	Err   error
}

func (e *OpError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Topic, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, topic string, err error) error {
	return &OpError{Op: op, Topic: topic, Err: err}
}

// invalid уточняет ErrInvalidArgument причиной.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
