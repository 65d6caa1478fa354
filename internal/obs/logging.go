// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
)

// Logger is the shared structured logger for all services.
var Logger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// InitLogger reconfigures the shared Logger with the given minimum level.
func InitLogger(level slog.Level) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	Logger = slog.New(h)
}
