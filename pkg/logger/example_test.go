package logger_test

import (
	"errors"

	"github.com/CedricEugeni/MoMentor/pkg/config"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Example_basic shows the logger as wired by the CLI
func Example_basic() {
	cfg := &config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}
	log := logger.New(cfg)

	log.Info("momentor starting")
	log.WithFields(map[string]interface{}{
		"run_id":  12,
		"capital": "10000.00",
	}).Info("run generated")
}

// Example_withError shows how collaborator failures are reported
func Example_withError() {
	cfg := &config.Config{Env: "production", LogLevel: "warn", LogFormat: "json"}
	log := logger.New(cfg)

	err := errors.New("market data unavailable")
	log.WithError(err).WithField("symbol", "AAPL").Warn("live quote missing")
}
