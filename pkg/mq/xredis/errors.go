package xredis

import "errors"

var (
	// ErrNilClient 传入的 Redis 客户端为 nil。
	ErrNilClient = errors.New("xredis: nil client")

	// ErrNoChannels 未指定任何频道或模式。
	ErrNoChannels = errors.New("xredis: no channels")
)
