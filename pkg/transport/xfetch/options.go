package xfetch

import (
	"errors"
	"net/http"
	"time"

	"github.com/omeyang/xrx/pkg/observability/xlog"
	"github.com/omeyang/xrx/pkg/observability/xmetrics"
	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/resilience/xbreaker"
	"github.com/omeyang/xrx/pkg/resilience/xlimit"
	"github.com/omeyang/xrx/pkg/resilience/xretry"
	"github.com/omeyang/xrx/pkg/util/xlru"
)

// DefaultTimeout 单次请求的默认超时。
const DefaultTimeout = 30 * time.Second

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 使用自定义 http.Client，nil 被忽略。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout 设置单次请求超时，d <= 0 表示只受 ctx 约束。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = max(d, 0)
	}
}

// WithLogger 设置日志，默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver 设置观测器，默认不观测。
func WithObserver(o xmetrics.Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithBreaker 让每次请求经过熔断器。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithCache 缓存成功的响应体，键为 URL。
func WithCache(cache *xlru.Cache[string, []byte]) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLimiter 在请求前按 URL 的 host 限流，被限流时返回可重试的 *xlimit.LimitError。
func WithLimiter(l *xlimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetryer 让 Fetch 在返回前同步重试；Load 与 LoadWithFetch 不使用它。
func WithRetryer(r *xretry.Retryer) Option {
	return func(c *Client) {
		c.retryer = r
	}
}

// Load 与 LoadWithFetch 的默认重试参数。
const (
	LoadAttempts          = 3
	LoadDelay             = 1500 * time.Millisecond
	LoadWithFetchAttempts = xrx.DefaultRetryAttempts
	LoadWithFetchDelay    = xrx.DefaultRetryDelay
)

// LoadOption 配置 Load 与 LoadWithFetch。
type LoadOption func(*loadOptions)

type loadOptions struct {
	strategy       xrx.RetryStrategy
	retry          []xrx.Option
	permanentOn4xx bool
}

func applyLoadOptions(opts []LoadOption, attempts int, delay time.Duration) loadOptions {
	o := loadOptions{strategy: xrx.NewRetryStrategy(attempts, delay)}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithRetryStrategy 覆盖默认重试策略。
func WithRetryStrategy(s xrx.RetryStrategy) LoadOption {
	return func(o *loadOptions) {
		o.strategy = s
	}
}

// WithRetryOptions 传递给 Retry 的选项，例如 xrx.WithClock。
func WithRetryOptions(opts ...xrx.Option) LoadOption {
	return func(o *loadOptions) {
		o.retry = append(o.retry, opts...)
	}
}

// WithPermanentClientErrors 让 4xx 响应（408 与 429 除外）不再重试，直接以错误结束。
// 默认任何非 200 响应都会按重试策略重新订阅。
func WithPermanentClientErrors() LoadOption {
	return func(o *loadOptions) {
		o.permanentOn4xx = true
	}
}

// classify 按选项调整单次请求的错误：开启 WithPermanentClientErrors 时把客户端错误标记为永久。
func (o loadOptions) classify(err error) error {
	if !o.permanentOn4xx {
		return err
	}
	var se *StatusError
	if errors.As(err, &se) && se.ClientError() {
		return xretry.NewPermanentError(err)
	}
	return err
}
