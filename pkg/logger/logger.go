package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	DEBUG = zerolog.DebugLevel
	INFO  = zerolog.InfoLevel
	WARN  = zerolog.WarnLevel
	ERROR = zerolog.ErrorLevel
)

// Logger 保留 printf 风格的调用方式，底层交给 zerolog
type Logger struct {
	zl     zerolog.Logger
	prefix string
}

var (
	std     *Logger
	stdOnce sync.Once
	mu      sync.RWMutex
)

func newLogger(level Level, out io.Writer, useColor bool) *Logger {
	w := out
	if useColor {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Init useColor=true 时输出人类可读格式，否则输出 JSON 行
func Init(level string, useColor bool) {
	stdOnce.Do(func() {
		mu.Lock()
		std = newLogger(parseLevel(level), os.Stderr, useColor)
		mu.Unlock()
	})
}

// InitWithFile 日志写入文件（JSON 行），打开失败时退回 stderr
func InitWithFile(level string, useColor bool, logFile string) {
	stdOnce.Do(func() {
		var out io.Writer = os.Stderr
		color := useColor
		if logFile != "" {
			if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				out = file
				color = false
			}
		}
		mu.Lock()
		std = newLogger(parseLevel(level), out, color)
		mu.Unlock()
	})
}

// SetOutput 替换输出，测试里用来捕获日志
func SetOutput(w io.Writer) {
	l := Get()
	mu.Lock()
	defer mu.Unlock()
	std = &Logger{zl: l.zl.Output(w)}
}

func Get() *Logger {
	mu.RLock()
	l := std
	mu.RUnlock()
	if l == nil {
		Init("INFO", true)
		mu.RLock()
		l = std
		mu.RUnlock()
	}
	return l
}

func SetLevel(level string) {
	l := Get()
	mu.Lock()
	defer mu.Unlock()
	std = &Logger{zl: l.zl.Level(parseLevel(level)), prefix: l.prefix}
}

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Z 直接拿到 zerolog，需要结构化字段时用
func Z() *zerolog.Logger {
	l := Get()
	return &l.zl
}

func Debug(format string, v ...interface{}) { Get().log(DEBUG, format, v...) }

func Info(format string, v ...interface{}) { Get().log(INFO, format, v...) }

func Warn(format string, v ...interface{}) { Get().log(WARN, format, v...) }

func Error(format string, v ...interface{}) { Get().log(ERROR, format, v...) }

func Fatal(format string, v ...interface{}) {
	Get().log(ERROR, format, v...)
	os.Exit(1)
}

func (l *Logger) Debug(format string, v ...interface{}) { l.log(DEBUG, format, v...) }

func (l *Logger) Info(format string, v ...interface{}) { l.log(INFO, format, v...) }

func (l *Logger) Warn(format string, v ...interface{}) { l.log(WARN, format, v...) }

func (l *Logger) Error(format string, v ...interface{}) { l.log(ERROR, format, v...) }

func (l *Logger) log(level Level, format string, v ...interface{}) {
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	if l.prefix != "" {
		ev = ev.Str("component", l.prefix)
	}
	ev.Msg(fmt.Sprintf(format, v...))
}

// WithPrefix 带组件名的子 logger
func WithPrefix(prefix string) *Logger {
	parent := Get()
	return &Logger{zl: parent.zl, prefix: prefix}
}
