package mbus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{ErrNotInitialized, StatusNotInitialized},
		{ErrAlreadyInitialized, StatusAlreadyInitialized},
		{opError("send", "t", invalid("bad")), StatusInvalidArgument},
		{opError("peek", "t", ErrNotFound), StatusNotFound},
		{ErrTimeout, StatusTimeout},
		{ErrShuttingDown, StatusShuttingDown},
		{fmt.Errorf("%w: limit", ErrResourceExhausted), StatusResourceExhausted},
		{ErrClosed, StatusClosed},
		{opError("recv", "t", context.Canceled), StatusCanceled},
		{context.DeadlineExceeded, StatusTimeout},
		{errors.New("other"), StatusUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), "err %v", tc.err)
	}
}

func TestStatusErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, StatusOK.Err())
	for _, s := range []Status{
		StatusNotInitialized, StatusAlreadyInitialized, StatusInvalidArgument, StatusNotFound,
		StatusTimeout, StatusShuttingDown, StatusResourceExhausted, StatusClosed, StatusCanceled,
	} {
		assert.Equal(t, s, StatusOf(s.Err()), "status %s", s)
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "unknown", Status(42).String())
	assert.Error(t, Status(42).Err())
}

func TestOpErrorWithoutTopic(t *testing.T) {
	t.Parallel()

	err := opError("exit", "", ErrNotInitialized)
	assert.Equal(t, "exit: mbus: not initialized", err.Error())
	assert.ErrorIs(t, err, ErrNotInitialized)
}
