package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/text"
)

func newRecentCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.store.RecentMessages(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read recent messages: %w", err)
			}
			return printRecent(cmd.OutOrStdout(), msgs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of exchanges to show")
	return cmd
}

func printRecent(w io.Writer, msgs []*database.Message) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, "The history is empty.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tQUESTION\tANSWER")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"),
			text.Ellipsize(oneLine(m.UserText), 40), text.Ellipsize(oneLine(m.BotText), 40))
	}
	return tw.Flush()
}

// oneLine collapses whitespace so a cell stays on one table row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
