package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Warn(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a zap-backed Logger. Every entry carries the service name and
// hostname so entries from the different commands can be told apart.
func New(cfg Config) Logger {
	return &zapLogger{z: newZap(cfg)}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func newZap(cfg Config) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, writer(cfg.Output), parseLevel(cfg.Level))
	hostname, _ := os.Hostname()

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("service", cfg.Service), zap.String("hostname", hostname))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func writer(output string) zapcore.WriteSyncer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zapcore.AddSync(os.Stdout)
		}
		return zapcore.AddSync(file)
	}
}

func (l *zapLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.log(zapcore.InfoLevel, action, message, requestID, details, nil)
}

func (l *zapLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.log(zapcore.DebugLevel, action, message, requestID, details, nil)
}

func (l *zapLogger) Warn(action, message, requestID string, details map[string]interface{}) {
	l.log(zapcore.WarnLevel, action, message, requestID, details, nil)
}

func (l *zapLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.log(zapcore.ErrorLevel, action, message, requestID, details, err)
}

func (l *zapLogger) log(level zapcore.Level, action, message, requestID string, details map[string]interface{}, err error) {
	ce := l.z.Check(level, message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("action", action))
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	ce.Write(fields...)
}

// Sync flushes buffered entries.
func Sync(l Logger) error {
	if zl, ok := l.(*zapLogger); ok {
		return zl.z.Sync()
	}
	return nil
}
