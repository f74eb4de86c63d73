package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Logger provides structured JSON logging with optional PII redaction.
type Logger struct {
	zl        *zap.Logger
	level     zap.AtomicLevel
	redactPII atomic.Bool
}

// New builds a JSON logger writing to w.
func New(w io.Writer, level Level) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), atom)
	l := &Logger{zl: zap.New(core), level: atom}
	l.redactPII.Store(true)
	return l
}

var defaultLogger atomic.Pointer[Logger]

func init() { defaultLogger.Store(New(os.Stderr, INFO)) }

func std() *Logger { return defaultLogger.Load() }

// SetOutput replaces the default logger with one writing to w.
func SetOutput(w io.Writer) {
	old := std()
	l := New(w, INFO)
	l.level.SetLevel(old.level.Level())
	l.redactPII.Store(old.redactPII.Load())
	defaultLogger.Store(l)
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { std().level.SetLevel(l.zapLevel()) }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { std().redactPII.Store(r) }

// Zap exposes the underlying zap logger for libraries that want one.
func Zap() *zap.Logger { return std().zl }

// Sync flushes buffered entries.
func Sync() error { return std().zl.Sync() }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { std().log(zapcore.DebugLevel, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { std().log(zapcore.InfoLevel, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { std().log(zapcore.WarnLevel, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { std().log(zapcore.ErrorLevel, msg, fields...) }

func (l *Logger) log(level zapcore.Level, msg string, fields ...interface{}) {
	ce := l.zl.Check(level, msg)
	if ce == nil {
		return
	}
	redact := l.redactPII.Load()
	zf := make([]zap.Field, 0, len(fields)/2)
	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case error:
			s := v.Error()
			if redact {
				s = redactPIIValue(key, s)
			}
			zf = append(zf, zap.String(key, s))
		case string:
			if redact {
				v = redactPIIValue(key, v)
			}
			zf = append(zf, zap.String(key, v))
		default:
			zf = append(zf, zap.Any(key, v))
		}
	}
	ce.Write(zf...)
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	// Owner identities are usually email addresses
	if (strings.Contains(key, "email") || strings.Contains(key, "owner")) && strings.Contains(val, "@") {
		return RedactEmail(val)
	}
	// Redact any embedded emails in generic fields
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
