// Package logger собирает *slog.Logger по настройкам и содержит помощники для атрибутов.
//
// Помощники возвращают пустой slog.Attr для пустых значений, поэтому их можно
// передавать без проверок: log.Warn("recv failed", logger.Error(err)).
package logger

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// New создаёт логгер. format: "json" или "text" (по умолчанию).
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel переводит строку в уровень; неизвестные значения дают Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error кладёт ошибку под ключ "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Topic — имя темы.
func Topic(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("topic", name)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ID — произвольный идентификатор под своим ключом.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}
