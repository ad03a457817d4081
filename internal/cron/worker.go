package cron

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nedworks/ebilling/internal/billing"
	"github.com/nedworks/ebilling/pkg/errors"
)

// intervalSettingKey is the settings-table override for the run interval.
// The value is either a Go duration ("24h") or a cron expression ("@daily").
const intervalSettingKey = "bulk_bill_interval"

const jobName = "bulk_bill_render"

// Worker periodically renders the current month's bulk bill document into
// the output directory.
type Worker struct {
	svc       *billing.Service
	outputDir string
	setting   string
	log       zerolog.Logger
}

// NewWorker builds a worker with the given default interval setting; the
// settings table can override it while the worker runs.
func NewWorker(svc *billing.Service, outputDir, defaultSetting string, log zerolog.Logger) *Worker {
	if defaultSetting == "" {
		defaultSetting = "@daily"
	}
	return &Worker{svc: svc, outputDir: outputDir, setting: defaultSetting, log: log}
}

// nextRun calculates the run after lastRun for the current setting.
func (w *Worker) nextRun(setting string, lastRun time.Time) time.Time {
	if d, err := time.ParseDuration(setting); err == nil && d > 0 {
		return lastRun.Add(d)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(lastRun)
	}
	w.log.Warn().Str("setting", setting).Msg("unparseable interval setting, using 24h")
	return lastRun.Add(24 * time.Hour)
}

// Run blocks until ctx is cancelled, executing the job on schedule. The
// first run happens immediately.
func (w *Worker) Run(ctx context.Context) error {
	st := w.svc.Store()

	if val, err := st.GetSetting(ctx, intervalSettingKey); err == nil && val != "" {
		w.setting = val
	}

	// Control loop ticker (checks config and run time).
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	nextRun := time.Now()
	w.log.Info().Str("setting", w.setting).Str("output_dir", w.outputDir).Msg("bulk bill worker starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := st.GetSetting(ctx, intervalSettingKey); err == nil && val != "" && val != w.setting {
				w.log.Info().Str("from", w.setting).Str("to", val).Msg("interval setting updated")
				w.setting = val
				nextRun = w.nextRun(w.setting, time.Now())
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()
			runErr := w.RunOnce(ctx)
			dur := time.Since(started)

			errMsg := ""
			if errors.Is(runErr, errors.CodeNotFound) {
				// Nothing stored for this month yet.
				w.log.Info().Msg("no bills to render this cycle")
				runErr = nil
			}
			if runErr != nil {
				errMsg = runErr.Error()
				w.log.Error().Err(runErr).Dur("duration", dur).Msg("bulk bill run failed")
			} else {
				w.log.Info().Dur("duration", dur).Msg("bulk bill run completed")
			}
			if err := st.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
				w.log.Warn().Err(err).Msg("update scheduled_jobs failed")
			}

			nextRun = w.nextRun(w.setting, time.Now())
		}
	}
}

// RunOnce renders the bulk document for the current month and writes it to
// the output directory.
func (w *Worker) RunOnce(ctx context.Context) error {
	month := time.Now().Format("2006-01")
	doc, err := w.svc.GenerateBulkBills(ctx, month)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.outputDir, doc.Filename), doc.Bytes, 0o644)
}
