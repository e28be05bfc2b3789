package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/topicsum/internal/config"
	"github.com/briangreenhill/topicsum/internal/httpapi"
	"github.com/briangreenhill/topicsum/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP summary façade",
	Long: `Serve exposes summary retrieval over HTTP for page integrations:
GET /summary?topic_id=...&date=... blocks until the summary is ready and
returns sanitized HTML; DELETE /summary cancels the session in flight.
Expired cache entries are swept at startup and on a cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sweep := func(st store.Store) {
		n, err := st.SweepExpired()
		if err != nil {
			log.Warn().Err(err).Msg("cache sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int("removed", n).Msg("swept expired summaries")
		}
	}
	sweep(st)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.SweepSchedule, func() { sweep(st) }); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	sched.Start()
	defer sched.Stop()

	api := httpapi.New(httpapi.ServerOptions{
		Sessions: newManager(cfg, st, log),
		Logger:   log,
	})
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: hlog.NewHandler(log)(api.Router),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
