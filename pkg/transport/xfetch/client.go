package xfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/omeyang/xrx/pkg/observability/xlog"
	"github.com/omeyang/xrx/pkg/observability/xmetrics"
	"github.com/omeyang/xrx/pkg/resilience/xbreaker"
	"github.com/omeyang/xrx/pkg/resilience/xlimit"
	"github.com/omeyang/xrx/pkg/resilience/xretry"
	"github.com/omeyang/xrx/pkg/util/xlru"
)

// maxResponseSize 响应体上限（10MB）。
const maxResponseSize = 10 << 20

// 观测标识。
const (
	MetricsComponent = "xfetch"
	MetricsOpFetch   = "fetch"
)

// Client HTTP GET 客户端，可并发使用。
type Client struct {
	http     *http.Client
	timeout  time.Duration
	logger   xlog.Logger
	observer xmetrics.Observer
	breaker  *xbreaker.Breaker
	limiter  *xlimit.Limiter
	cache    *xlru.Cache[string, []byte]
	retryer  *xretry.Retryer
}

// NewClient 创建客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		observer: xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch 发出 GET 请求并返回响应体。
//
// 配置了 Retryer 时按其策略同步重试。ctx 取消会中止进行中的请求。
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c == nil {
		return nil, ErrNilClient
	}
	if c.retryer == nil {
		return c.fetchOnce(ctx, url)
	}
	return xretry.DoWithResult(ctx, c.retryer, func(ctx context.Context) ([]byte, error) {
		return c.fetchOnce(ctx, url)
	})
}

// fetchOnce 查缓存、限流，然后经过熔断器发出一次请求。
func (c *Client) fetchOnce(ctx context.Context, url string) (body []byte, err error) {
	if url == "" {
		return nil, xretry.NewPermanentError(ErrEmptyURL)
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(url); ok {
			return cached, nil
		}
	}

	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpFetch,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String("url", sanitizeURL(url))},
	})
	start := time.Now()
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Int("status_code", StatusCode(err))}})
		c.log(ctx, url, start, err)
	}()

	if c.limiter != nil {
		if err = c.limiter.Check(ctx, hostOf(url)); err != nil {
			return nil, err
		}
	}
	if c.breaker != nil {
		body, err = xbreaker.Execute(ctx, c.breaker, func() ([]byte, error) {
			return c.get(ctx, url)
		})
	} else {
		body, err = c.get(ctx, url)
	}
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(url, body)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xretry.NewPermanentError(fmt.Errorf("%w: %w", ErrRequest, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // 只读响应，Close 错误无法传播

	if resp.StatusCode != http.StatusOK {
		// 读完剩余内容以复用连接
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck // 尽力而为
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: sanitizeURL(url)}
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if n > maxResponseSize {
		return nil, xretry.NewPermanentError(ErrResponseTooLarge)
	}
	return buf.Bytes(), nil
}

func (c *Client) log(ctx context.Context, url string, start time.Time, err error) {
	logger := c.logger
	if logger == nil {
		logger = xlog.Default()
	}
	attrs := []slog.Attr{xlog.URL(sanitizeURL(url)), xlog.Duration(time.Since(start))}
	switch {
	case err == nil:
		logger.Debug(ctx, "fetch ok", attrs...)
	case errors.Is(err, context.Canceled):
		logger.Debug(ctx, "fetch cancelled", attrs...)
	default:
		if code := StatusCode(err); code != 0 {
			attrs = append(attrs, xlog.StatusCode(code))
		}
		logger.Warn(ctx, "fetch failed", append(attrs, xlog.Err(err))...)
	}
}

// sanitizeURL 去掉查询参数，避免日志与指标高基数。
func sanitizeURL(rawURL string) string {
	if path, _, found := strings.Cut(rawURL, "?"); found {
		return path
	}
	return rawURL
}

// hostOf 返回 URL 的 host，解析失败时退回去掉查询串的 URL。
func hostOf(rawURL string) string {
	if u, err := neturl.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return sanitizeURL(rawURL)
}
