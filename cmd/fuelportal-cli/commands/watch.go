package commands

import (
	"context"
	"fmt"
	"log/slog"
	"myfuelportal-backend/internal/components/chrono"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/internal/coordinator"
	"myfuelportal-backend/internal/history"
	"myfuelportal-backend/internal/notify"
	"myfuelportal-backend/lib/util/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

const report_watch_prune = "watch.prune"

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reads the tank on a schedule until interrupted, keeping history and sending notifications.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := serviceutil.SignalContext(cmd.Context())
		g := getGlobals(ctx)

		fetcher, closeStore, err := newFetcher(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		var recorder coordinator.Recorder
		var store history.Store
		hasHistory := g.config.History.File != "" || g.config.History.Url != ""
		if hasHistory {
			s, db, err := history.Open(ctx, g.config.History)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()
			store = s
			recorder = s
		}

		notifiers := notify.Multi{notify.NewTelemetryNotifier(g.tel)}
		if g.config.Smtp.Configured() {
			notifiers = append(notifiers, notify.NewEmailNotifier(g.config.Smtp))
		}

		coord, err := coordinator.New(fetcher, coordinator.Options{
			Schedule: g.config.Watch.Schedule,
			LowLevel: g.config.Watch.LowLevel,
			History:  recorder,
			Notifier: notifiers,
		}, g.tel)
		if err != nil {
			return err
		}

		if hasHistory {
			latest, ok, err := store.Latest(ctx)
			if err != nil {
				return fmt.Errorf("read latest reading: %w", err)
			}
			if ok {
				coord.Seed(latest)
			}
		}

		cron := chrono.NewStandardCron(g.tel)
		// registered after db.Close, so running jobs finish before the history closes
		defer func() {
			<-cron.Stop().Done()
		}()
		err = coord.Start(ctx, cron)
		if err != nil {
			return err
		}
		if hasHistory && g.config.Watch.Retention > 0 {
			err = cron.Cron("@daily", func() {
				prune(ctx, g.tel, store, g.config.Watch.Retention)
			})
			if err != nil {
				return err
			}
		}
		telemetry.InstrumentPerfStats(ctx, g.tel)

		snapshot, err := coord.Refresh(ctx)
		if err != nil {
			slog.Warn("first refresh failed", "status", snapshot.Status.String(), "err", err)
		} else {
			renderReading(*snapshot.Reading)
		}

		slog.Info("watching the tank, press Ctrl+C to stop")
		<-ctx.Done()
		slog.Info("stopping")
		return nil
	},
}

func prune(ctx context.Context, tel telemetry.API, store history.Store, days int) {
	before := time.Now().AddDate(0, 0, -days)
	count, err := store.Prune(ctx, before)
	if err != nil {
		tel.ReportBroken(report_watch_prune, err)
		return
	}
	tel.ReportDebug(report_watch_prune, "removed readings", count)
}
