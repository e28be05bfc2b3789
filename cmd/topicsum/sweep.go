package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/topicsum/internal/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired summaries from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		st, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := st.SweepExpired()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d expired summaries\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
