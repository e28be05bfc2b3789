package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/topicsum/internal/client"
	"github.com/briangreenhill/topicsum/internal/config"
	"github.com/briangreenhill/topicsum/internal/session"
	"github.com/briangreenhill/topicsum/internal/store"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "topicsum",
	Short: "Retrieve daily summaries of forum topics",
	Long: `topicsum asks a remote summarization service for a natural-language
summary of one forum topic's posts on a given day, polling until the
service finishes, and caches completed summaries locally for a week.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}

// openStore selects the Postgres store when a database is configured,
// otherwise the local file store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		ps, err := store.NewPGStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open result store: %w", err)
		}
		return ps, ps.Close, nil
	}
	fs, err := store.NewFileStore(cfg.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open result store: %w", err)
	}
	return fs, func() {}, nil
}

func newManager(cfg *config.Config, st store.Store, log zerolog.Logger) *session.Manager {
	return session.NewManager(st,
		client.New(client.WithBaseURL(cfg.BaseURL)),
		session.WithPollInterval(cfg.PollInterval),
		session.WithTimeout(cfg.PollTimeout),
		session.WithLogger(log),
	)
}
