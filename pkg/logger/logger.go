package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a LogLevel, falling back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) charm() charmlog.Level {
	switch l {
	case DEBUG:
		return charmlog.DebugLevel
	case WARN:
		return charmlog.WarnLevel
	case ERROR:
		return charmlog.ErrorLevel
	case FATAL:
		return charmlog.FatalLevel
	default:
		return charmlog.InfoLevel
	}
}

// Logger is a leveled printf-style logger backed by charmbracelet/log.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	base  *charmlog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	JSON       bool
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Prefix:     "",
		Colorize:   true,
		ShowCaller: false,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}

	formatter := charmlog.TextFormatter
	if cfg.JSON {
		formatter = charmlog.JSONFormatter
	}

	base := charmlog.NewWithOptions(cfg.Output, charmlog.Options{
		Prefix:          cfg.Prefix,
		Level:           cfg.Level.charm(),
		ReportCaller:    cfg.ShowCaller,
		ReportTimestamp: cfg.ShowTime,
		TimeFormat:      cfg.TimeFormat,
		Formatter:       formatter,
		// Skip the wrapper frames so the caller is the logging call site.
		CallerOffset: 1,
	})
	if !cfg.Colorize {
		base.SetColorProfile(termenv.Ascii)
	}

	return &Logger{level: cfg.Level, base: base}
}

// GetLogger returns the process-wide logger. LOG_LEVEL selects its level.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.base.SetLevel(level.charm())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

func (l *Logger) SetColorize(colorize bool) {
	if colorize {
		l.base.SetColorProfile(termenv.ANSI256)
		return
	}
	l.base.SetColorProfile(termenv.Ascii)
}

func (l *Logger) SetShowCaller(show bool) {
	l.base.SetReportCaller(show)
}

// With returns a child logger that adds keyvals to every entry.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{level: l.Level(), base: l.base.With(keyvals...)}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...any) {
	l.base.Debugf(msg, args...)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...any) {
	l.base.Infof(msg, args...)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warnf(msg, args...)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...any) {
	l.base.Errorf(msg, args...)
}

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(msg string, args ...any) {
	l.base.Fatalf(msg, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.base.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.base.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.base.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.base.Errorf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.base.Fatalf(format, args...)
}

// Package-level convenience functions using the default logger

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	GetLogger().Fatal(msg, args...)
}

func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	GetLogger().Fatalf(format, args...)
}

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

func SetColorize(colorize bool) {
	GetLogger().SetColorize(colorize)
}

func SetShowCaller(show bool) {
	GetLogger().SetShowCaller(show)
}
