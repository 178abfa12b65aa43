package xredis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xrx/pkg/observability/xlog"
	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

// Message 一条 Pub/Sub 消息。
type Message struct {
	Channel string
	// Pattern 仅 PSubscribe 收到的消息非空。
	Pattern string
	Payload string
}

// DefaultChannelSize 客户端消息缓冲的默认大小。
const DefaultChannelSize = 100

// Option 配置订阅。
type Option func(*options)

type options struct {
	channelSize int
	logger      xlog.Logger
}

// WithChannelSize 设置客户端消息缓冲大小，缓冲满时 go-redis 丢弃消息。
func WithChannelSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.channelSize = n
		}
	}
}

// WithLogger 设置日志，默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// PubSub 以固定配置创建订阅 Source。
type PubSub struct {
	client redis.UniversalClient
	opts   options
}

// New 创建 PubSub。
func New(client redis.UniversalClient, opts ...Option) *PubSub {
	o := options{channelSize: DefaultChannelSize}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &PubSub{client: client, opts: o}
}

// Subscribe 使用默认配置订阅 channels。
func Subscribe(client redis.UniversalClient, channels ...string) xrx.Source[Message] {
	return New(client).Subscribe(channels...)
}

// Subscribe 订阅 channels，每条消息作为一个值发射。
// 连接被服务端关闭时完成。
func (p *PubSub) Subscribe(channels ...string) xrx.Source[Message] {
	return p.source(channels, func(ctx context.Context) *redis.PubSub {
		return p.client.Subscribe(ctx, channels...)
	})
}

// PSubscribe 按模式订阅，Message.Pattern 为命中的模式。
func (p *PubSub) PSubscribe(patterns ...string) xrx.Source[Message] {
	return p.source(patterns, func(ctx context.Context) *redis.PubSub {
		return p.client.PSubscribe(ctx, patterns...)
	})
}

func (p *PubSub) source(names []string, open func(context.Context) *redis.PubSub) xrx.Source[Message] {
	if p.client == nil {
		return xrx.Throw[Message](ErrNilClient)
	}
	if len(names) == 0 {
		return xrx.Throw[Message](ErrNoChannels)
	}
	o := p.opts

	return xrx.Create(func(sub xrx.Subscriber[Message]) xrx.Teardown {
		logger := o.logger
		if logger == nil {
			logger = xlog.Default()
		}
		logger = logger.With(xlog.Component("xredis"))

		ctx, cancel := context.WithCancel(context.Background())
		ps := open(ctx)
		go func() {
			// 等待订阅确认，确保之后发布的消息不会丢失
			if _, err := ps.Receive(ctx); err != nil {
				if ctx.Err() == nil {
					sub.OnError(xrx.NewProducerError("redis", fmt.Errorf("subscribe %v: %w", names, err)))
				}
				return
			}
			logger.Debug(ctx, "subscribed", xlog.Count(len(names)))

			ch := ps.Channel(redis.WithChannelSize(o.channelSize))
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						if ctx.Err() == nil {
							sub.OnComplete()
						}
						return
					}
					sub.OnNext(Message{Channel: msg.Channel, Pattern: msg.Pattern, Payload: msg.Payload})
				}
			}
		}()

		return func() {
			cancel()
			if err := ps.Close(); err != nil {
				logger.Warn(context.Background(), "close pubsub failed", xlog.Err(err))
			}
		}
	})
}
