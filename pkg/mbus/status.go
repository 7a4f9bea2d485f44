package mbus

import (
	"context"
	"errors"
)

// Status — целочисленный код результата в стиле C-интерфейса шины.
type Status int

const (
	StatusOK                 Status = 0
	StatusNotInitialized     Status = -1
	StatusAlreadyInitialized Status = -2
	StatusInvalidArgument    Status = -3
	StatusNotFound           Status = -4
	StatusTimeout            Status = -5
	StatusShuttingDown       Status = -6
	StatusResourceExhausted  Status = -7
	StatusClosed             Status = -8
	StatusCanceled           Status = -9
	StatusUnknown            Status = -100
)

var statusErrors = []struct {
	status Status
	err    error
}{
	{StatusNotInitialized, ErrNotInitialized},
	{StatusAlreadyInitialized, ErrAlreadyInitialized},
	{StatusInvalidArgument, ErrInvalidArgument},
	{StatusNotFound, ErrNotFound},
	{StatusTimeout, ErrTimeout},
	{StatusShuttingDown, ErrShuttingDown},
	{StatusResourceExhausted, ErrResourceExhausted},
	{StatusClosed, ErrClosed},
	{StatusTimeout, context.DeadlineExceeded},
	{StatusCanceled, context.Canceled},
}

// StatusOf переводит ошибку операции в код. nil даёт StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	return StatusUnknown
}

// Err возвращает ошибку-эталон для кода.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	for _, se := range statusErrors {
		if se.status == s {
			return se.err
		}
	}
	return errors.New("mbus: unknown status")
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotInitialized:
		return "not initialized"
	case StatusAlreadyInitialized:
		return "already initialized"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusNotFound:
		return "not found"
	case StatusTimeout:
		return "timeout"
	case StatusShuttingDown:
		return "shutting down"
	case StatusResourceExhausted:
		return "resource exhausted"
	case StatusClosed:
		return "closed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
