package obs

import (
	"log/slog"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the shared structured logger used across the services.
// Output is one JSON object per line.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	})
	return logger
}

// SetLoggerForTests swaps the shared logger. Only intended for test use.
func SetLoggerForTests(l *slog.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}
