package logging

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide JSON logger. main swaps in a MultiHandler
// with the Postgres sink once the database pool is up.
func Setup() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}
