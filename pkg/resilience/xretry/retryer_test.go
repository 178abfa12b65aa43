package xretry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryer_Do(t *testing.T) {
	fast := func(n int) *Retryer {
		return NewRetryer(WithRetryPolicy(NewFixedRetry(n)), WithBackoffPolicy(NewNoBackoff()))
	}

	t.Run("SuccessOnFirstAttempt", func(t *testing.T) {
		var attempts int
		err := fast(3).Do(context.Background(), func(context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("SuccessAfterRetry", func(t *testing.T) {
		var attempts int
		err := fast(3).Do(context.Background(), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("FailAfterBudget", func(t *testing.T) {
		var attempts int
		errBoom := errors.New("boom")
		err := fast(3).Do(context.Background(), func(context.Context) error {
			attempts++
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 3, attempts)
	})

	t.Run("PermanentNotRetried", func(t *testing.T) {
		var attempts int
		err := fast(5).Do(context.Background(), func(context.Context) error {
			attempts++
			return NewPermanentError(errors.New("bad request"))
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("OnRetryIsOneBased", func(t *testing.T) {
		var seen []int
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NewNoBackoff()),
			WithOnRetry(func(attempt int, _ error) { seen = append(seen, attempt) }),
		)
		_ = r.Do(context.Background(), func(context.Context) error { return errors.New("x") })
		assert.Equal(t, []int{1, 2}, seen)
	})

	t.Run("NilArguments", func(t *testing.T) {
		var nilRetryer *Retryer
		assert.ErrorIs(t, nilRetryer.Do(context.Background(), func(context.Context) error { return nil }), ErrNilRetryer)
		//nolint:staticcheck // nil context is the case under test
		assert.ErrorIs(t, fast(1).Do(nil, func(context.Context) error { return nil }), ErrNilContext)
		assert.ErrorIs(t, fast(1).Do(context.Background(), nil), ErrNilFunc)
	})
}

func TestDoWithResult(t *testing.T) {
	r := NewRetryer(WithRetryPolicy(NewFixedRetry(4)), WithBackoffPolicy(NewNoBackoff()))

	var attempts int
	got, err := DoWithResult(context.Background(), r, func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)

	_, err = DoWithResult[int](context.Background(), nil, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrNilRetryer)
}

func TestRetryer_Defaults(t *testing.T) {
	var zero Retryer
	assert.Equal(t, 3, zero.RetryPolicy().MaxAttempts())
	assert.IsType(t, &ExponentialBackoff{}, zero.BackoffPolicy())
}
