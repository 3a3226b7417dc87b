package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newArchiveCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive messages older than the retention period to CSV",
		Long: `Export every logged message older than archive.retention_months to a
CSV file in archive.dir and delete it from the database. FAQ counts are kept.

Exit status: 0 when archived or nothing to archive, 1 when reading or
exporting failed, 2 when the delete was rolled back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			archiver := a.archiver()
			out := cmd.OutOrStdout()

			if !force {
				prompt := fmt.Sprintf("Archive and delete messages before %s? Type 'yes' to continue: ",
					archiver.Cutoff().Format("2006-01-02 15:04:05"))
				if !confirm(cmd.InOrStdin(), out, prompt) {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			res := archiver.Run(cmd.Context())
			fmt.Fprintln(out, res.Status())
			if code := res.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

// confirm writes prompt and reports whether the answer read from in is "yes".
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}
