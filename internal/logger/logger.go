package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a level name like "debug" or "WARN" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for all logger implementations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// ZapLogger adapts a zap SugaredLogger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger writing to stdout. jsonOutput selects zap's
// production JSON encoder; otherwise a console encoder is used.
func New(level Level, jsonOutput bool) *ZapLogger {
	return NewWithWriter(os.Stdout, level, jsonOutput)
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level Level, jsonOutput bool) *ZapLogger {
	var enc zapcore.Encoder
	if jsonOutput {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level.zapLevel())
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() Logger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.sugar.Debugw(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.sugar.Infow(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.sugar.Warnw(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.sugar.Errorw(msg, keysAndValues(fields)...) }

func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues(fields)...)}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func keysAndValues(fields []Field) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			kv = append(kv, f.Key, err.Error())
			continue
		}
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
