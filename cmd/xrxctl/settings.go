package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrx/pkg/config/xconf"
	"github.com/omeyang/xrx/pkg/observability/xlog"
)

const (
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

// settings 配置文件结构，零值字段表示使用内置默认值。
type settings struct {
	Retry struct {
		Attempts int           `koanf:"attempts"`
		Delay    time.Duration `koanf:"delay"`
	} `koanf:"retry"`
	Fetch struct {
		Timeout time.Duration `koanf:"timeout"`
		Rate    int           `koanf:"rate"`
	} `koanf:"fetch"`
	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
		File   string `koanf:"file"`
	} `koanf:"log"`
}

// loadSettings 读取 --config 指向的文件（如有），再用显式给出的全局参数覆盖。
func loadSettings(cmd *cli.Command) (settings, error) {
	var s settings
	if path := cmd.String("config"); path != "" {
		cfg, err := xconf.New(path)
		if err != nil {
			return s, err
		}
		if err := cfg.Unmarshal("", &s); err != nil {
			return s, err
		}
	}

	override := func(flag string, dst *string, def string) {
		if cmd.IsSet(flag) || *dst == "" {
			*dst = cmd.String(flag)
		}
		if *dst == "" {
			*dst = def
		}
	}
	override("log-level", &s.Log.Level, defaultLogLevel)
	override("log-format", &s.Log.Format, defaultLogFormat)
	override("log-file", &s.Log.File, "")
	return s, nil
}

// newLogger 按 settings 构建日志并设为全局默认，返回的 cleanup 需在退出前调用。
func newLogger(cmd *cli.Command, s settings) (xlog.Logger, func() error, error) {
	b := xlog.New().
		SetOutput(cmd.Root().ErrWriter).
		SetLevelString(s.Log.Level).
		SetFormat(s.Log.Format)
	if s.Log.File != "" {
		b = b.SetRotation(s.Log.File, xlog.Rotation{MaxSizeMB: 10, MaxBackups: 3})
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, &usageError{msg: fmt.Sprintf("日志配置无效: %v", err)}
	}
	xlog.SetDefault(logger)
	return logger, cleanup, nil
}

// prepare 是每个子命令的公共入口：读取配置并初始化日志。
func prepare(ctx context.Context, cmd *cli.Command) (settings, xlog.Logger, func() error, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return s, nil, nil, err
	}
	logger, cleanup, err := newLogger(cmd, s)
	if err != nil {
		return s, nil, nil, err
	}
	logger.Debug(ctx, "settings loaded",
		slog.String("config", cmd.String("config")),
		slog.Int("retry_attempts", s.Retry.Attempts),
		xlog.Duration(s.Retry.Delay))
	return s, logger, cleanup, nil
}
