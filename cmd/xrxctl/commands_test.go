package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/reactive/xrx/xrxtest"
)

const movies = `[{"title":"Star Wars"},{"title":"Star Trek"}]`

// syncBuffer 可被后台 goroutine 并发写入的输出缓冲。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// failingServer 前 failures 次请求返回 500，之后返回 body。
func failingServer(t *testing.T, failures int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut syncBuffer
	code = run(t.Context(), append([]string{"xrxctl"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestNumbers(t *testing.T) {
	code, out, _ := runCLI(t, "numbers", "--interval", "0s")
	require.Equal(t, 0, code)
	assert.Equal(t, "10\n20\ndone\n", out)
}

func TestNumbersPipeline(t *testing.T) {
	rec := xrxtest.NewRecorder[int]()
	numbersPipeline(xrx.Of(1, 5, 10)).Subscribe(rec)
	assert.Equal(t, []int{10, 20}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestSpaced(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	rec := xrxtest.NewRecorder[int]()
	s := spaced(clk, time.Second, 1, 5, 10).Subscribe(rec)
	defer s.Unsubscribe()

	require.Eventually(t, func() bool { return len(rec.Values()) == 1 }, 2*time.Second, time.Millisecond)
	require.NoError(t, clk.WaitAdvance(time.Second, 2*time.Second, 1))
	require.Eventually(t, func() bool { return len(rec.Values()) == 2 }, 2*time.Second, time.Millisecond)
	require.NoError(t, clk.WaitAdvance(time.Second, 2*time.Second, 1))
	require.True(t, rec.Wait(2*time.Second))
	assert.Equal(t, []int{1, 5, 10}, rec.Values())

	t.Run("UnsubscribeStops", func(t *testing.T) {
		clk := testclock.NewClock(time.Now())
		rec := xrxtest.NewRecorder[int]()
		s := spaced(clk, time.Second, 1, 2).Subscribe(rec)
		require.NoError(t, clk.WaitAdvance(0, 2*time.Second, 1))
		s.Unsubscribe()
		clk.Advance(time.Hour)
		assert.Never(t, func() bool { return rec.Terminals() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
		assert.Equal(t, []int{1}, rec.Values())
	})
}

func TestLoad(t *testing.T) {
	t.Run("PrintsTitles", func(t *testing.T) {
		srv, calls := failingServer(t, 0, movies)
		code, out, _ := runCLI(t, "load", srv.URL)
		require.Equal(t, 0, code)
		assert.Equal(t, "Star Wars\nStar Trek\n", out)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("RecoversAfterFailures", func(t *testing.T) {
		srv, calls := failingServer(t, 2, movies)
		code, out, _ := runCLI(t, "load", "--attempts", "3", "--delay", "1ms", srv.URL)
		require.Equal(t, 0, code)
		assert.Equal(t, "Star Wars\nStar Trek\n", out)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("WithFetch", func(t *testing.T) {
		srv, calls := failingServer(t, 1, `{"id":7}`)
		code, out, _ := runCLI(t, "load", "--with-fetch", "--delay", "1ms", srv.URL)
		require.Equal(t, 0, code)
		assert.Equal(t, "{\"id\":7}\n", out)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Exhausted", func(t *testing.T) {
		srv, calls := failingServer(t, 1000, movies)
		code, out, errOut := runCLI(t, "load", "-a", "2", "-d", "1ms", srv.URL)
		assert.Equal(t, 1, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "错误")
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("ConfigFile", func(t *testing.T) {
		srv, calls := failingServer(t, 1000, movies)
		path := filepath.Join(t.TempDir(), "xrx.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retry:\n  attempts: 2\n  delay: 1ms\nfetch:\n  timeout: 1s\n"), 0o600))

		code, _, _ := runCLI(t, "--config", path, "load", srv.URL)
		assert.Equal(t, 1, code)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("FlagOverridesConfig", func(t *testing.T) {
		srv, calls := failingServer(t, 1000, movies)
		path := filepath.Join(t.TempDir(), "xrx.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"retry": {"attempts": 5, "delay": "1ms"}}`), 0o600))

		code, _, _ := runCLI(t, "-c", path, "load", "--attempts", "1", srv.URL)
		assert.Equal(t, 1, code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("RateLimited", func(t *testing.T) {
		srv, calls := failingServer(t, 1, movies)
		code, out, _ := runCLI(t, "load", "--rate", "1", "--attempts", "2", "--delay", "1100ms", srv.URL)
		require.Equal(t, 0, code)
		assert.Equal(t, "Star Wars\nStar Trek\n", out)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("ClientErrors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		code, _, _ := runCLI(t, "load", "-a", "3", "-d", "1ms", srv.URL)
		assert.Equal(t, 1, code)
		assert.Equal(t, int32(3), calls.Load())

		calls.Store(0)
		code, _, errOut := runCLI(t, "load", "--fail-fast", "-a", "3", "-d", "1ms", srv.URL)
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "404")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("MissingURL", func(t *testing.T) {
		code, _, errOut := runCLI(t, "load")
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "<url>")
	})
}

func TestGlobalFlags(t *testing.T) {
	t.Run("InvalidLogLevel", func(t *testing.T) {
		code, _, errOut := runCLI(t, "--log-level", "loud", "numbers", "--interval", "0s")
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "日志配置无效")
	})

	t.Run("JSONDebugLogs", func(t *testing.T) {
		code, out, errOut := runCLI(t, "--log-level", "debug", "--log-format", "json", "numbers", "--interval", "0s")
		require.Equal(t, 0, code)
		assert.Equal(t, "10\n20\ndone\n", out)
		assert.Contains(t, errOut, `"operator":"numbers"`)
	})

	t.Run("LogFile", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "xrx.log")
		code, _, errOut := runCLI(t, "--log-level", "debug", "--log-file", logFile, "numbers", "--interval", "0s")
		require.Equal(t, 0, code)
		assert.NotContains(t, errOut, "subscribe")

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "subscribe")
	})

	t.Run("MissingConfig", func(t *testing.T) {
		code, _, _ := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "numbers")
		assert.Equal(t, 1, code)
	})
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xrx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  attempts: 1\n"), 0o600))

	ctx, cancel := context.WithCancel(t.Context())
	var out, errOut syncBuffer
	codeCh := make(chan int, 1)
	go func() { codeCh <- run(ctx, []string{"xrxctl", "watch", path}, &out, &errOut) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "retry.attempts = 1")
	}, 5*time.Second, 10*time.Millisecond)

	// 监听建立前的写入可能被错过，因此重复写入直到观察到重载。
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("retry:\n  attempts: 9\n"), 0o600)
		return strings.Contains(out.String(), "retry.attempts = 9")
	}, 5*time.Second, 200*time.Millisecond)
	assert.Contains(t, out.String(), "reloaded "+path)

	cancel()
	select {
	case code := <-codeCh:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	t.Run("MissingFile", func(t *testing.T) {
		code, _, errOut := runCLI(t, "watch")
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "<file>")
	})
}

func TestPrintPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"Titles", movies, "Star Wars\nStar Trek\n"},
		{"Object", `{"title":"solo"}`, "{\"title\":\"solo\"}\n"},
		{"MissingTitle", `[{"title":"a"},{"id":1}]`, "[{\"title\":\"a\"},{\"id\":1}]\n"},
		{"EmptyArray", `[]`, "[]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printPayload(&buf, json.RawMessage(tt.payload)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestIgnoreInterrupt(t *testing.T) {
	assert.NoError(t, ignoreInterrupt(nil))
	assert.NoError(t, ignoreInterrupt(context.Canceled))
	assert.ErrorIs(t, ignoreInterrupt(context.DeadlineExceeded), context.DeadlineExceeded)
}
