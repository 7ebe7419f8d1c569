// Command web serves the ChurnPulse scoring dashboard API: interactive
// scoring, the persisted feature table, and pipeline run control with
// websocket progress.
package main

import (
	"log/slog"
	"os"

	"churncli/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application exited with error", "error", err)
		os.Exit(1)
	}
}
