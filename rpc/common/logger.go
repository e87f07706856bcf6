package common

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// txKVLogger implements the ILogger interface on top of a zap logger.
// The level is filtered here, zap itself logs everything it receives.
type txKVLogger struct {
	name   string
	level  logger.LogLevel
	logger *zap.SugaredLogger
}

func (l *txKVLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *txKVLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.logger.Debugf(format, args...)
	}
}

func (l *txKVLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.logger.Infof(format, args...)
	}
}

func (l *txKVLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.logger.Warnf(format, args...)
	}
}

func (l *txKVLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.logger.Errorf(format, args...)
	}
}

func (l *txKVLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		l.logger.Panicf(format, args...)
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	baseLoggerOnce sync.Once
	baseLogger     *zap.Logger
)

// getBaseLogger returns the process wide zap logger all package loggers are derived from.
// The output format is: <time> | <LEVEL> | <package> | <message>
func getBaseLogger() *zap.Logger {
	baseLoggerOnce.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "name",
			MessageKey:       "msg",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeTime:       zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
			EncodeDuration:   zapcore.StringDurationEncoder,
			EncodeName:       func(name string, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(fmt.Sprintf("%-15s", name)) },
			ConsoleSeparator: " | ",
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stdout),
			zapcore.DebugLevel,
		)
		baseLogger = zap.New(core)
	})
	return baseLogger
}

// CreateLogger creates a logger for the package pkgName (implements logger.Factory)
func CreateLogger(pkgName string) logger.ILogger {
	return &txKVLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: getBaseLogger().Named(pkgName).Sugar(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames are all package loggers used by txKV
var loggerNames = []string{
	"txn",
	"persist",
	"rpc",
	"transport/rpc",
}

var factoryOnce sync.Once

// InitLoggers installs the zap backed logger factory and sets the level of all txKV loggers.
// It can be called multiple times, the factory is only installed once.
func InitLoggers(level string) error {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	// Set as the global logger factory
	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(logLevel)
	}
	return nil
}
