package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/topicsum/internal/config"
	"github.com/briangreenhill/topicsum/internal/render"
	"github.com/briangreenhill/topicsum/internal/session"
	"github.com/briangreenhill/topicsum/internal/summary"
)

var (
	fetchTopic  string
	fetchCat    string
	fetchSubcat string
	fetchPost   string
	fetchDate   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the summary for one topic and day",
	Long: `Fetch asks the summarization service for a topic's daily summary and
prints it. Completed summaries are cached for a week, so repeating a
fetch is free. Generation can take a few minutes; Ctrl-C cancels the
wait. Only days strictly before today can be summarized.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchTopic, "topic", "",
		"composite topic id, cat#subcat#post")
	fetchCmd.Flags().StringVar(&fetchCat, "cat", "", "topic category number")
	fetchCmd.Flags().StringVar(&fetchSubcat, "subcat", "", "topic subcategory number")
	fetchCmd.Flags().StringVar(&fetchPost, "post", "", "topic post number")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "",
		"day to summarize, YYYY-MM-DD (default: yesterday)")
	rootCmd.AddCommand(fetchCmd)
}

// topicFromFlags resolves --topic, or composes it from --cat/--subcat/--post.
// An unresolvable topic comes back empty; the session reports it as a
// missing identifier.
func topicFromFlags() string {
	if fetchTopic != "" {
		if _, err := summary.ParseID(fetchTopic); err != nil {
			return ""
		}
		return fetchTopic
	}
	t := summary.Topic{Cat: fetchCat, Subcat: fetchSubcat, Post: fetchPost}
	if !t.Valid() {
		return ""
	}
	return t.ID()
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	day := fetchDate
	if day == "" {
		day = summary.Yesterday(time.Now())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log := newLogger()
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	o := newManager(cfg, st, log).Fetch(ctx, topicFromFlags(), day)
	switch o.Kind {
	case session.OutcomeCompleted:
		fmt.Println(o.Summary)
		return nil
	case session.OutcomeCancelled:
		// User-initiated; nothing to report.
		return nil
	default:
		return errors.New(render.StatusText(o))
	}
}
