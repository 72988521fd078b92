package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hpc-portal/internal/pkg/config"
)

// 未调用 Init 前全部丢弃, 单测无需初始化
var (
	Log    = zap.NewNop()
	log    = zap.NewNop()
	writer = &SQLWriter{zapcore.AddSync(io.Discard)}
)

var (
	rootOnce sync.Once
	rootDir  string
)

// SQLWriter 供 gorm logger 使用, 与应用日志写到同一位置
type SQLWriter struct {
	zapcore.WriteSyncer
}

func (w *SQLWriter) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w.WriteSyncer, format+"\n", args...)
	_ = w.WriteSyncer.Sync()
}

func GetWriter() *SQLWriter {
	return writer
}

// moduleRoot 向上查找 go.mod 所在目录, 找不到返回空
func moduleRoot() string {
	rootOnce.Do(func() {
		dir, err := os.Getwd()
		if err != nil {
			return
		}
		for {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				rootDir = dir
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	})
	return rootDir
}

// callerEncoder 输出相对模块根目录的路径, 方便在 IDE 中跳转
func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	if !caller.Defined {
		enc.AppendString("undefined")
		return
	}
	if root := moduleRoot(); root != "" {
		if rel, err := filepath.Rel(root, caller.File); err == nil && !filepath.IsAbs(rel) && rel[0] != '.' {
			enc.AppendString(fmt.Sprintf("%s:%d", rel, caller.Line))
			return
		}
	}
	enc.AppendString(caller.TrimmedPath())
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(time.DateTime + ".000"),
		EncodeDuration:   zapcore.MillisDurationEncoder,
		EncodeCaller:     callerEncoder,
		ConsoleSeparator: " ",
	}
	if format == "json" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newSyncer(cfg *config.LogConfig) (zapcore.WriteSyncer, error) {
	if cfg.Output != "file" || cfg.FilePath == "" {
		return zapcore.AddSync(os.Stdout), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(file), nil
}

// Init 初始化日志, 级别无法识别时使用 info
func Init(cfg *config.LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	syncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), syncer, level)
	Log = zap.New(core, zap.AddCaller())
	log = Log.WithOptions(zap.AddCallerSkip(1))
	writer = &SQLWriter{syncer}
	return nil
}

// Close 刷盘
func Close() error {
	if err := Log.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { log.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { log.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }

func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }

// Named 模块日志
func Named(name string) *zap.Logger {
	return Log.Named(name)
}
