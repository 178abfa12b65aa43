package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// ErrUnknownLevel 无法识别的级别字符串。
	ErrUnknownLevel = errors.New("xlog: unknown level")
	// ErrUnknownFormat 无法识别的输出格式。
	ErrUnknownFormat = errors.New("xlog: unknown format")
	// ErrEmptyFilename SetRotation 的文件名为空。
	ErrEmptyFilename = errors.New("xlog: empty rotation filename")
)

// Rotation 按大小轮转的日志文件配置，零值字段使用 lumberjack 默认值。
type Rotation struct {
	// MaxSizeMB 单个文件上限（MB），默认 100。
	MaxSizeMB int
	// MaxBackups 保留的旧文件数，0 表示全部保留。
	MaxBackups int
	// MaxAgeDays 旧文件保留天数，0 表示不按时间清理。
	MaxAgeDays int
	// Compress 是否 gzip 压缩旧文件。
	Compress bool
}

// Builder 日志配置构建器，所有 Set 方法可链式调用，错误在 Build 时返回。
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	onError   func(error)
	closer    io.Closer
	err       error
}

// New 创建构建器，默认输出到 stderr、Info 级别、text 格式。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

// SetOutput 设置输出目标，nil 被忽略。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置初始级别。
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 以字符串设置初始级别，见 ParseLevel。
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空字符串视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "text":
		b.format = "text"
	case "json":
		b.format = "json"
	default:
		b.err = errors.Join(b.err, fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	return b
}

// SetAddSource 是否记录源码位置。
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetRotation 输出到按大小轮转的文件，由 Build 返回的 cleanup 关闭。
func (b *Builder) SetRotation(filename string, r Rotation) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.err = errors.Join(b.err, ErrEmptyFilename)
		return b
	}
	lj := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}
	b.output = lj
	b.closer = lj
	return b
}

// SetOnError 设置 Handler 写入失败时的回调，在日志调用方 goroutine 中同步执行。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// Build 构建 Logger。返回的 cleanup 释放轮转文件等资源，可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.levelVar, AddSource: b.addSource}
	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		addSource:  b.addSource,
		onError:    b.onError,
		errorCount: new(atomic.Uint64),
	}

	closer := b.closer
	var once sync.Once
	cleanup := func() error {
		var err error
		once.Do(func() {
			if closer != nil {
				err = closer.Close()
			}
		})
		return err
	}
	return logger, cleanup, nil
}
