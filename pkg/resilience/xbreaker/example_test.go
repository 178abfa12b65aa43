package xbreaker_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xrx/pkg/resilience/xbreaker"
)

func ExampleBreaker_Do() {
	b := xbreaker.NewBreaker("api", xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(2)))
	for range 3 {
		err := b.Do(context.Background(), func() error { return errors.New("timeout") })
		fmt.Println(err, xbreaker.IsOpen(err))
	}
	// Output:
	// timeout false
	// timeout false
	// breaker api: circuit breaker is open true
}
