package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"FundPulse/internal/analysis"
	"FundPulse/internal/model"
	"FundPulse/internal/notifier"
	"FundPulse/internal/scheduler"
	"FundPulse/internal/server"
)

func serveCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, Telegram bot and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			cfg := a.cfg
			log := a.log

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var sender scheduler.Sender
			var tn *notifier.TelegramNotifier
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
					log.With().Str("component", "telegram").Logger())
				sender = tn
			}

			var sched *scheduler.Scheduler
			orch := analysis.New(a.collector, a.narrator,
				analysis.WithLogger(log.With().Str("component", "analysis").Logger()),
				analysis.WithMetrics(a.metrics),
				analysis.WithHooks(analysis.Hooks{
					OnPhase: func(p model.Phase) {
						log.Debug().Str("phase", string(p)).Msg("phase changed")
					},
					OnComplete: func(res *model.AnalysisResult) { sched.Deliver(res) },
				}),
			)

			sched = scheduler.NewScheduler(ctx, orch, a.holdings, sender, a.recorder, log.With().Str("component", "scheduler").Logger())
			sched.Narrate = cfg.Schedule.Narrate
			if err := sched.RegisterAll(cfg.Schedule.AnalysisCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			srv := server.New(server.Config{
				Addr:     cfg.Server.Addr,
				Log:      log,
				Runner:   orch,
				Holdings: a.holdings,
				Recorder: a.recorder,
				Gatherer: prometheus.DefaultGatherer,
				Ctx:      ctx,
			})
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			if runOnStart {
				if _, err := sched.RunNow(); err != nil {
					log.Warn().Err(err).Msg("run on start")
				}
			}

			log.Info().Msg("FundPulse is running. Press Ctrl+C to stop.")
			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received, stopping...")
			case err := <-errCh:
				log.Error().Err(err).Msg("http server failed")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			log.Info().Msg("FundPulse stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Start an analysis immediately")
	return cmd
}
