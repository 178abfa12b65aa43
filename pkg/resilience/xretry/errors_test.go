package xretry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	base := errors.New("base")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Plain", base, true},
		{"Permanent", NewPermanentError(base), false},
		{"Temporary", NewTemporaryError(base), true},
		{"WrappedPermanent", fmt.Errorf("ctx: %w", NewPermanentError(base)), false},
		{"Unrecoverable", Unrecoverable(base), false},
		{"TemporaryOverUnrecoverable", NewTemporaryError(Unrecoverable(base)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
			assert.Equal(t, tt.err != nil && !tt.want, IsPermanent(tt.err))
		})
	}
}

func TestErrorWrappers(t *testing.T) {
	base := errors.New("base")

	p := NewPermanentError(base)
	assert.Equal(t, "base", p.Error())
	assert.ErrorIs(t, p, base)
	assert.Equal(t, "permanent error", NewPermanentError(nil).Error())

	tmp := NewTemporaryError(base)
	assert.Equal(t, "base", tmp.Error())
	assert.ErrorIs(t, tmp, base)
	assert.Equal(t, "temporary error", NewTemporaryError(nil).Error())
}
