package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nedworks/ebilling/internal/billing"
	"github.com/nedworks/ebilling/internal/config"
	"github.com/nedworks/ebilling/internal/logging"
	"github.com/nedworks/ebilling/internal/render"
	"github.com/nedworks/ebilling/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ebilling",
	Short: "Electric billing for a staff residential colony",
	Long: `ebilling keeps consumer records, tariff slabs and monthly meter readings,
computes bills from them, and renders the bill documents. Configuration is
read from EBILLING_* environment variables.`,
	SilenceUsage: true,
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN})
	if err != nil {
		return nil, fmt.Errorf("opening storage (driver=%s): %w", cfg.DB.Driver, err)
	}
	return st, nil
}

func newService(st storage.Storage, log zerolog.Logger) *billing.Service {
	return billing.NewService(st, render.NewPDFRenderer(), log)
}
