package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMessage(t *testing.T) {
	err := NewDomainError("store.transition", ErrQueueItemNotFound, "item X not in pending")
	assert.Equal(t, "store.transition: item X not in pending: queue item not found", err.Error())

	bare := NewDomainError("store.transition", ErrQueueItemNotFound, "")
	assert.Equal(t, "store.transition: queue item not found", bare.Error())
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("dispatcher.sendRequestXML", ErrWorkOutstanding, "queue_item")
	assert.True(t, errors.Is(err, ErrWorkOutstanding))
	assert.False(t, errors.Is(err, ErrSessionNotFound))

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "dispatcher.sendRequestXML", de.Op)
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("anything", nil))

	wrapped := WrapOp("read sync log", ErrStore)
	require.Error(t, wrapped)
	assert.True(t, errors.Is(wrapped, ErrStore))
	assert.Equal(t, "read sync log: store operation failed", wrapped.Error())
}

func TestErrorCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"plain error", errors.New("boom"), CodeUnknown},
		{"direct sentinel", ErrSessionNotFound, CodeSessionNotFound},
		{"domain error", NewDomainError("op", ErrClientTooOld, "1.5"), CodeClientTooOld},
		{"fmt wrapped", fmt.Errorf("%w: parse: bad yaml", ErrConfigLoad), CodeConfigLoad},
		{"wrap op", WrapOp("enqueue item", ErrStore), CodeStore},
		{"double wrapped", fmt.Errorf("outer: %w", NewDomainError("op", ErrAuthInvalid, "")), CodeAuthInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorCodeOf(tc.err))
		})
	}
}
