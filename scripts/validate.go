package main

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"loyaltix/internal/validation"
)

func main() {
	baseURL := pflag.String("url", "http://localhost:8081", "Base URL for API validation")
	pflag.Parse()

	slog.Info("Starting API validation", "url", *baseURL)

	validator := validation.NewSmokeValidator(*baseURL)
	if err := validator.ValidateAll(); err != nil {
		slog.Error("❌ Валидация не пройдена", "error", err)
		os.Exit(1)
	}

	slog.Info("✅ Валидация успешно пройдена!")
}
