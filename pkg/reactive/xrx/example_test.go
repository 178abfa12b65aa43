package xrx_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

func Example() {
	src := xrx.Map(xrx.Of(1, 5, 10), func(x int) int { return x * 2 }).
		Filter(func(x int) bool { return x > 4 })

	src.Subscribe(xrx.Funcs[int]{
		Next:     func(v int) { fmt.Println("next", v) },
		Complete: func() { fmt.Println("complete") },
	})
	// Output:
	// next 10
	// next 20
	// complete
}

func ExampleSource_Retry() {
	var calls atomic.Int32
	src := xrx.Create(func(sub xrx.Subscriber[string]) xrx.Teardown {
		if calls.Add(1) < 3 {
			sub.OnError(xrx.NewProducerError("example", errors.New("unavailable")))
			return nil
		}
		sub.OnNext("ready")
		sub.OnComplete()
		return nil
	})

	got, err := xrx.Collect(context.Background(), src.Retry(xrx.NewRetryStrategy(4, 0)))
	fmt.Println(got, err, calls.Load())
	// Output:
	// [ready] <nil> 3
}

func ExampleFlatMap() {
	src := xrx.FlatMap(xrx.Of("a", "b"), func(s string) xrx.Source[string] {
		return xrx.Of(s+"1", s+"2")
	})
	got, _ := xrx.Collect(context.Background(), src)
	fmt.Println(got)
	// Output:
	// [a1 a2 b1 b2]
}
