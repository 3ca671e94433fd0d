package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/app"
)

func main() {
	// A missing .env is fine; real deployments set BALANCA_* directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", slog.String("error", err.Error()))
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
