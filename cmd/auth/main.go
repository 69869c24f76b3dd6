package main

import (
	"log/slog"
	"os"

	"github.com/aussiebroadwan/tokengate/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application stopped with error", "error", err)
		os.Exit(1)
	}
}
