package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// New создает и настраивает экземпляр логгера slog. Логи пишутся в
// ежедневно ротируемый файл и дублируются в stdout.
func New(logDir, version, logLevel string) (*slog.Logger, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(logDir, "channel_console.log")
	rotator, err := rotatelogs.New(
		logPath+".%Y%m%d",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, err
	}

	return NewWithWriter(io.MultiWriter(os.Stdout, rotator), version, logLevel), nil
}

// NewWithWriter создает JSON-логгер, пишущий в w.
func NewWithWriter(w io.Writer, version, logLevel string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(logLevel), // Уровень логирования (Info, Debug, Warn, Error)
		AddSource: true,                 // Добавлять в лог информацию о файле и строке кода
	})

	// Создаем логгер и добавляем в него постоянный атрибут "version"
	return slog.New(handler).With("version", version)
}

// ParseLevel переводит имя уровня из конфигурации в slog.Level.
// Неизвестные значения дают Info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
