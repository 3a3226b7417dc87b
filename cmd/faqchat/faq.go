package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/text"
)

func newFAQCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		live  bool
	)

	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Print the most asked questions",
		Long: `Print the most asked questions, most frequent first.

By default the ranking comes from the configured faq.mode. --live computes it
from the message log instead of the rollup table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ds, err := a.dataset()
			if err != nil {
				return err
			}
			ranker, err := a.ranker(ds, live)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.FAQ.Limit
			}

			entries, err := ranker.Top(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to rank questions: %w", err)
			}
			return printFAQs(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of questions to show (default faq.limit)")
	cmd.Flags().BoolVar(&live, "live", false, "Rank from the message log instead of the rollup table")
	return cmd
}

func printFAQs(w io.Writer, entries []*database.FAQEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No questions recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOUNT\tLAST SEEN\tQUESTION")
	for i, e := range entries {
		lastSeen := "-"
		if !e.LastSeenAt.IsZero() {
			lastSeen = e.LastSeenAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, e.QuestionCount, lastSeen, text.Ellipsize(oneLine(e.OriginalQuestion), 60))
	}
	return tw.Flush()
}
