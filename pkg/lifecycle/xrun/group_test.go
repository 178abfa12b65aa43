package xrun

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

var errService = errors.New("service failed")

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestGroup_ErrorCancelsOthers(t *testing.T) {
	g, _ := NewGroup(context.Background())
	var cancelled atomic.Bool
	g.Go(func(ctx context.Context) error {
		err := blockUntilDone(ctx)
		cancelled.Store(true)
		return err
	})
	g.Go(func(context.Context) error { return errService })

	assert.ErrorIs(t, g.Wait(), errService)
	assert.True(t, cancelled.Load())
}

func TestGroup_CancelCause(t *testing.T) {
	errStop := errors.New("stop requested")
	g, _ := NewGroup(context.Background())
	g.Go(blockUntilDone)
	g.Go(func(context.Context) error { return nil })
	g.Cancel(errStop)
	assert.ErrorIs(t, g.Wait(), errStop)
}

func TestGroup_PlainCancelIsNil(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(blockUntilDone)
	g.Cancel(nil)
	assert.NoError(t, g.Wait())
}

func TestGroup_NilFunc(t *testing.T) {
	//nolint:staticcheck // nil context 被归一化
	g, _ := NewGroup(nil)
	g.Go(nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestRun(t *testing.T) {
	t.Run("ReturnsWhenServicesFinish", func(t *testing.T) {
		err := Run(context.Background(), nil, func(context.Context) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("NoServices", func(t *testing.T) {
		assert.NoError(t, Run(context.Background(), nil))
	})

	t.Run("ServiceError", func(t *testing.T) {
		err := Run(context.Background(), nil, blockUntilDone, func(context.Context) error { return errService })
		assert.ErrorIs(t, err, errService)
	})

	t.Run("Signal", func(t *testing.T) {
		sigCh := make(chan os.Signal, 1)
		sigCh <- syscall.SIGINT
		err := Run(context.Background(), []Option{withSignalChan(sigCh), WithName("test")}, blockUntilDone)

		require.ErrorIs(t, err, ErrSignal)
		var se *SignalError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, syscall.SIGINT, se.Signal)
		assert.Equal(t, "received signal interrupt", se.Error())
	})

	t.Run("ParentCancel", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := Run(ctx, []Option{WithSignals(syscall.SIGUSR2)}, blockUntilDone)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("WithoutSignalHandler", func(t *testing.T) {
		err := Run(context.Background(), []Option{WithoutSignalHandler()}, func(context.Context) error { return nil })
		assert.NoError(t, err)
	})
}

func TestConsume(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		var got []int
		err := Consume(xrx.Of(1, 2, 3), func(v int) { got = append(got, v) })(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	})

	t.Run("Error", func(t *testing.T) {
		err := Consume(xrx.Throw[int](errService), func(int) {})(context.Background())
		assert.ErrorIs(t, err, errService)
	})

	t.Run("ContextCancelUnsubscribes", func(t *testing.T) {
		var torndown atomic.Bool
		src := xrx.Create(func(xrx.Subscriber[int]) xrx.Teardown {
			return func() { torndown.Store(true) }
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Consume(src, func(int) {})(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, torndown.Load())
	})

	t.Run("InsideRun", func(t *testing.T) {
		var n atomic.Int32
		err := Run(context.Background(), []Option{WithoutSignalHandler()},
			Consume(xrx.Of("a", "b"), func(string) { n.Add(1) }))
		require.NoError(t, err)
		assert.Equal(t, int32(2), n.Load())
	})
}
