package xconf

import "errors"

var (
	// ErrEmptyPath 配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 配置文件读取失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrNotReloadable 配置不是从文件创建的，无法重载或监视。
	ErrNotReloadable = errors.New("xconf: config is not backed by a file")

	// ErrWatchFailed 文件监视器创建或运行失败。
	ErrWatchFailed = errors.New("xconf: watch failed")
)
