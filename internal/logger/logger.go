// Package logger はArtifyサーバーのzapロガーを組み立てる。
package logger

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はロガーを生成する。
// developmentがtrueならコンソール形式、falseならJSON形式で出力する。
// sentryDSNが空でなければError以上のエントリをフィールド付きでSentryにも送る。
func New(development bool, sentryDSN string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("ロガーの生成に失敗: %w", err)
	}

	if sentryDSN != "" {
		opt, err := Sentry(sentryDSN)
		if err != nil {
			return nil, fmt.Errorf("sentryの初期化に失敗: %w", err)
		}
		logger = logger.WithOptions(opt)
	}

	return logger.Named("artify"), nil
}

// Sentry はSentryクライアントを初期化し、Error以上のエントリを送るコアを追加するオプションを返す。
func Sentry(dsn string) (zap.Option, error) {
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return nil, err
	}
	return withSentry(sentry.CaptureEvent), nil
}

func withSentry(capture func(*sentry.Event) *sentry.EventID) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, newSentryCore(capture))
	})
}

// sentryCore はError以上のエントリをcaptureに渡すzapcore.Core。
// With で積んだフィールドと呼び出し時のフィールドはEventのExtraに入る。
type sentryCore struct {
	zapcore.LevelEnabler
	capture func(*sentry.Event) *sentry.EventID
	fields  []zapcore.Field
}

func newSentryCore(capture func(*sentry.Event) *sentry.EventID) *sentryCore {
	return &sentryCore{LevelEnabler: zapcore.ErrorLevel, capture: capture}
}

func (c *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *sentryCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *sentryCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	extra := enc.Fields
	if entry.Caller.Defined {
		extra["caller"] = entry.Caller.String()
	}
	if entry.Stack != "" {
		extra["stack"] = entry.Stack
	}

	c.capture(&sentry.Event{
		Timestamp: entry.Time,
		Logger:    entry.LoggerName,
		Message:   entry.Message,
		Extra:     extra,
		Level:     SentryLevel(entry.Level),
	})
	return nil
}

func (c *sentryCore) Sync() error {
	return nil
}

// SentryLevel はzapのログレベルをSentryのレベルに変換する。
func SentryLevel(level zapcore.Level) sentry.Level {
	switch level {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return sentry.LevelFatal
	}
	return sentry.LevelInfo
}
