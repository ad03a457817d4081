package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nedworks/ebilling/internal/cron"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Run the bulk bill worker",
	Long: `Runs the background worker that renders the current month's bulk bill
document on a schedule. The interval comes from EBILLING_CRON_SCHEDULE and
can be overridden at runtime through the bulk_bill_interval setting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		worker := cron.NewWorker(newService(st, log), cfg.Doc.OutputDir, cfg.Cron.Schedule, log)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cronCmd)
}
