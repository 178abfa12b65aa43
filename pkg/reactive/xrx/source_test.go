package xrx_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/reactive/xrx/xrxtest"
)

const waitTimeout = 2 * time.Second

func TestCreate_Unicast(t *testing.T) {
	var runs atomic.Int32
	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
		n := int(runs.Add(1))
		sub.OnNext(n)
		sub.OnComplete()
		return nil
	})

	first := xrxtest.NewRecorder[int]()
	second := xrxtest.NewRecorder[int]()
	src.Subscribe(first)
	src.Subscribe(second)

	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, []int{1}, first.Values())
	assert.Equal(t, []int{2}, second.Values())
	assert.True(t, first.Completed())
	assert.True(t, second.Completed())
}

func TestSubscribe_TerminalOnce(t *testing.T) {
	t.Run("Synchronous", func(t *testing.T) {
		src := xrx.Create(func(sub xrx.Subscriber[string]) xrx.Teardown {
			sub.OnNext("a")
			sub.OnComplete()
			sub.OnNext("b")
			sub.OnError(errors.New("late"))
			sub.OnComplete()
			return nil
		})
		rec := xrxtest.NewRecorder[string]()
		s := src.Subscribe(rec)

		assert.Equal(t, []string{"a"}, rec.Values())
		assert.Equal(t, 1, rec.Terminals())
		assert.NoError(t, rec.Err())
		assert.True(t, s.Closed())
		assert.NoError(t, s.Err())
	})

	t.Run("ConcurrentTerminals", func(t *testing.T) {
		errBoom := errors.New("boom")
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			var wg sync.WaitGroup
			for i := range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if i%2 == 0 {
						sub.OnError(errBoom)
					} else {
						sub.OnComplete()
					}
					sub.OnNext(i)
				}()
			}
			wg.Wait()
			return nil
		})
		rec := xrxtest.NewRecorder[int]()
		src.Subscribe(rec)

		require.True(t, rec.Wait(waitTimeout))
		assert.Equal(t, 1, rec.Terminals())
		assert.Empty(t, rec.Values())
	})
}

func TestSubscribe_SerializesConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 100

	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
		var wg sync.WaitGroup
		for p := range producers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perProducer {
					sub.OnNext(p*perProducer + i)
				}
			}()
		}
		go func() {
			wg.Wait()
			sub.OnComplete()
		}()
		return nil
	})

	var inFlight, overlaps atomic.Int32
	count := 0
	s := src.Subscribe(xrx.Funcs[int]{
		Next: func(int) {
			if inFlight.Add(1) > 1 {
				overlaps.Add(1)
			}
			count++
			inFlight.Add(-1)
		},
	})

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("subscription did not complete")
	}
	assert.Equal(t, producers*perProducer, count)
	assert.Zero(t, overlaps.Load())
}

func TestTeardown_RunsOnce(t *testing.T) {
	t.Run("UnsubscribeTwice", func(t *testing.T) {
		var calls atomic.Int32
		src := xrx.Create(func(xrx.Subscriber[int]) xrx.Teardown {
			return func() { calls.Add(1) }
		})
		s := src.Subscribe(xrxtest.NewRecorder[int]())
		assert.False(t, s.Closed())

		s.Unsubscribe()
		s.Unsubscribe()
		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, s.Closed())
		assert.NoError(t, s.Err())
		<-s.Done()
	})

	t.Run("AfterSynchronousComplete", func(t *testing.T) {
		var calls atomic.Int32
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			sub.OnComplete()
			return func() { calls.Add(1) }
		})
		s := src.Subscribe(nil)
		assert.Equal(t, int32(1), calls.Load())
		s.Unsubscribe()
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("AfterAsynchronousError", func(t *testing.T) {
		var calls atomic.Int32
		errBoom := errors.New("boom")
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			go sub.OnError(errBoom)
			return func() { calls.Add(1) }
		})
		rec := xrxtest.NewRecorder[int]()
		s := src.Subscribe(rec)
		require.True(t, rec.Wait(waitTimeout))
		<-s.Done()

		assert.Equal(t, int32(1), calls.Load())
		assert.ErrorIs(t, s.Err(), errBoom)
		s.Unsubscribe()
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
		stop := make(chan struct{})
		go func() {
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				sub.OnNext(i)
				time.Sleep(time.Millisecond)
			}
		}()
		return func() { close(stop) }
	})

	rec := xrxtest.NewRecorder[int]()
	s := src.Subscribe(rec)
	require.Eventually(t, func() bool { return len(rec.Values()) >= 3 }, waitTimeout, time.Millisecond)

	s.Unsubscribe()
	time.Sleep(5 * time.Millisecond)
	seen := len(rec.Values())
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.Values(), seen)
	assert.Zero(t, rec.Terminals())
}

func TestSubscribe_PanicBecomesProducerError(t *testing.T) {
	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
		sub.OnNext(1)
		panic("producer exploded")
	})
	rec := xrxtest.NewRecorder[int]()
	src.Subscribe(rec)

	var pe *xrx.ProducerError
	require.ErrorAs(t, rec.Err(), &pe)
	assert.Equal(t, "create", pe.Source)
	assert.ErrorIs(t, rec.Err(), xrx.ErrPanic)
	assert.Equal(t, []int{1}, rec.Values())
}

func TestSource_Degenerate(t *testing.T) {
	t.Run("ZeroValueCompletes", func(t *testing.T) {
		var src xrx.Source[int]
		rec := xrxtest.NewRecorder[int]()
		s := src.Subscribe(rec)
		assert.True(t, rec.Completed())
		assert.True(t, s.Closed())
	})

	t.Run("NilCreate", func(t *testing.T) {
		rec := xrxtest.NewRecorder[int]()
		xrx.Create[int](nil).Subscribe(rec)
		assert.ErrorIs(t, rec.Err(), xrx.ErrNilFunc)
	})

	t.Run("NilSubscription", func(t *testing.T) {
		var s *xrx.Subscription
		s.Unsubscribe()
		assert.True(t, s.Closed())
		assert.NoError(t, s.Err())
		<-s.Done()
	})

	t.Run("SubscribeFunc", func(t *testing.T) {
		var got []int
		completed := false
		xrx.Of(1, 2).SubscribeFunc(func(v int) { got = append(got, v) }, nil, func() { completed = true })
		assert.Equal(t, []int{1, 2}, got)
		assert.True(t, completed)
	})
}

func TestTeardowns(t *testing.T) {
	var order []int
	td := xrx.Teardowns(
		func() { order = append(order, 1) },
		nil,
		func() { order = append(order, 2) },
	)
	td()
	td()
	assert.Equal(t, []int{2, 1}, order)
}

func TestSubscribe_ConsumerPanicTerminates(t *testing.T) {
	t.Run("Synchronous", func(t *testing.T) {
		var torndown atomic.Int32
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			sub.OnNext(1)
			sub.OnNext(2)
			sub.OnComplete()
			return func() { torndown.Add(1) }
		})

		var (
			nexts int
			errs  []error
			s     *xrx.Subscription
		)
		require.NotPanics(t, func() {
			s = src.SubscribeFunc(
				func(int) {
					nexts++
					panic("consumer bug")
				},
				func(err error) { errs = append(errs, err) },
				func() { t.Error("unexpected complete") },
			)
		})

		assert.Equal(t, 1, nexts)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], xrx.ErrPanic)
		assert.ErrorIs(t, s.Err(), xrx.ErrPanic)
		assert.True(t, s.Closed())
		assert.Equal(t, int32(1), torndown.Load())
		select {
		case <-s.Done():
		default:
			t.Fatal("Done not closed after consumer panic")
		}
	})

	t.Run("ThroughOperator", func(t *testing.T) {
		errBoom := errors.New("boom")
		var torndown atomic.Int32
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			sub.OnNext(1)
			sub.OnNext(2)
			return func() { torndown.Add(1) }
		})

		rec := xrxtest.NewRecorder[int]()
		s := xrx.Map(src, func(v int) int { return v * 10 }).Subscribe(xrx.Funcs[int]{
			Next:  func(int) { panic(errBoom) },
			Error: rec.OnError,
		})

		assert.ErrorIs(t, rec.Err(), errBoom)
		assert.ErrorIs(t, rec.Err(), xrx.ErrPanic)
		assert.Equal(t, 1, rec.Terminals())
		assert.Equal(t, int32(1), torndown.Load())
		<-s.Done()
	})

	t.Run("Asynchronous", func(t *testing.T) {
		exited := make(chan struct{})
		src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
			stop := make(chan struct{})
			go func() {
				defer close(exited)
				for i := 0; ; i++ {
					select {
					case <-stop:
						return
					default:
					}
					sub.OnNext(i)
					time.Sleep(time.Millisecond)
				}
			}()
			return func() { close(stop) }
		})

		rec := xrxtest.NewRecorder[int]()
		s := src.Subscribe(xrx.Funcs[int]{
			Next:  func(int) { panic("consumer bug") },
			Error: rec.OnError,
		})

		select {
		case <-s.Done():
		case <-time.After(waitTimeout):
			t.Fatal("subscription not terminated")
		}
		select {
		case <-exited:
		case <-time.After(waitTimeout):
			t.Fatal("producer not torn down")
		}
		assert.ErrorIs(t, rec.Err(), xrx.ErrPanic)
		assert.Equal(t, 1, rec.Terminals())
	})
}

func TestUnsubscribe_InsideOnNext(t *testing.T) {
	var (
		held atomic.Pointer[xrx.Subscription]
		cut  atomic.Int64
	)
	cut.Store(-1)
	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
		stop := make(chan struct{})
		go func() {
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				sub.OnNext(i)
				time.Sleep(time.Millisecond)
			}
		}()
		return func() { close(stop) }
	})

	rec := xrxtest.NewRecorder[int]()
	s := src.Subscribe(xrx.Funcs[int]{
		Next: func(v int) {
			rec.OnNext(v)
			if cur := held.Load(); cur != nil && v >= 3 && cut.Load() < 0 {
				cut.Store(int64(v))
				cur.Unsubscribe()
			}
		},
	})
	held.Store(s)

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("unsubscribe from callback did not finish the subscription")
	}
	time.Sleep(20 * time.Millisecond)

	values := rec.Values()
	require.NotEmpty(t, values)
	assert.Equal(t, int(cut.Load()), values[len(values)-1])
	assert.NoError(t, s.Err())
}
