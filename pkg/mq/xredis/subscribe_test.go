package xredis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/reactive/xrx/xrxtest"
)

const waitTimeout = 2 * time.Second

func newTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolSize:     2,
		MaxRetries:   1,
	})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

// waitSubscribers 等待 channel 上出现 n 个订阅者。
func waitSubscribers(t *testing.T, mr *miniredis.Miniredis, channel string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == n
	}, waitTimeout, time.Millisecond)
}

func TestSubscribe(t *testing.T) {
	client, mr := newTestRedis(t)

	rec := xrxtest.NewRecorder[Message]()
	s := Subscribe(client, "movies", "shows").Subscribe(rec)
	defer s.Unsubscribe()
	waitSubscribers(t, mr, "movies", 1)

	mr.Publish("movies", "Star Wars")
	mr.Publish("shows", "Star Trek")
	mr.Publish("other", "ignored")

	require.Eventually(t, func() bool { return len(rec.Values()) == 2 }, waitTimeout, time.Millisecond)
	assert.Equal(t, []Message{
		{Channel: "movies", Payload: "Star Wars"},
		{Channel: "shows", Payload: "Star Trek"},
	}, rec.Values())
	assert.Zero(t, rec.Terminals())
}

func TestPSubscribe(t *testing.T) {
	client, mr := newTestRedis(t)

	rec := xrxtest.NewRecorder[Message]()
	s := New(client, WithChannelSize(10)).PSubscribe("movie.*").Subscribe(rec)
	defer s.Unsubscribe()
	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 1 }, waitTimeout, time.Millisecond)

	mr.Publish("movie.new", "Dune")
	require.Eventually(t, func() bool { return len(rec.Values()) == 1 }, waitTimeout, time.Millisecond)
	assert.Equal(t, Message{Channel: "movie.new", Pattern: "movie.*", Payload: "Dune"}, rec.Values()[0])
}

func TestSubscribe_UnsubscribeClosesPubSub(t *testing.T) {
	client, mr := newTestRedis(t)

	rec := xrxtest.NewRecorder[Message]()
	s := Subscribe(client, "movies").Subscribe(rec)
	waitSubscribers(t, mr, "movies", 1)

	s.Unsubscribe()
	waitSubscribers(t, mr, "movies", 0)
	mr.Publish("movies", "late")
	assert.Never(t, func() bool { return len(rec.Events()) > 0 }, 20*time.Millisecond, time.Millisecond)
}

func TestSubscribe_Unicast(t *testing.T) {
	client, mr := newTestRedis(t)
	src := Subscribe(client, "movies")

	a, b := xrxtest.NewRecorder[Message](), xrxtest.NewRecorder[Message]()
	sa := src.Subscribe(a)
	defer sa.Unsubscribe()
	sb := src.Subscribe(b)
	defer sb.Unsubscribe()
	waitSubscribers(t, mr, "movies", 2)

	mr.Publish("movies", "Alien")
	require.Eventually(t, func() bool {
		return len(a.Values()) == 1 && len(b.Values()) == 1
	}, waitTimeout, time.Millisecond)
}

func TestSubscribe_ConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	_, err = xrx.Collect(t.Context(), Subscribe(client, "movies"))
	var pe *xrx.ProducerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "redis", pe.Source)
}

func TestSubscribe_InvalidArguments(t *testing.T) {
	_, err := xrx.Collect(t.Context(), Subscribe(nil, "movies"))
	assert.ErrorIs(t, err, ErrNilClient)

	client, _ := newTestRedis(t)
	_, err = xrx.Collect(t.Context(), Subscribe(client))
	assert.ErrorIs(t, err, ErrNoChannels)
}
