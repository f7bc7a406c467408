package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/logging"
)

// NewHistoryCmd constructs the `lawglance history` command, which lists the
// most recent entries in the query log.
func NewHistoryCmd() *cobra.Command {
	var limit int
	var asJSON bool
	var stats bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions from the query log",
		Long: `List recent questions answered by 'lawglance serve' and 'lawglance ask',
newest first, with their safety label, answer path and citation count.

The log lives at ~/.lawglance/queries.db unless LAWGLANCE_QUERY_LOG points
elsewhere.

Examples:
  lawglance history
  lawglance history -n 50 --json
  lawglance history --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := cmd.Context()

			ql := openQueryLog(log)
			if ql == nil {
				return fmt.Errorf("history: query log unavailable")
			}
			defer func() { _ = ql.Close() }()

			out := cmd.OutOrStdout()

			if stats {
				counts, err := ql.CountByPath(ctx)
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				paths := make([]string, 0, len(counts))
				for p := range counts {
					paths = append(paths, p)
				}
				slices.Sort(paths)
				for _, p := range paths {
					fmt.Fprintf(out, "%-20s %d\n", p, counts[p])
				}
				return nil
			}

			entries, err := ql.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return fmt.Errorf("history: encode: %w", err)
				}
				return nil
			}

			if len(entries) == 0 {
				fmt.Fprintln(os.Stderr, "no queries logged yet")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tCHANNEL\tSAFETY\tPATH\tCITES\tLATENCY\tQUERY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime),
					e.Channel, e.Safety, e.Path, e.Citations,
					e.Duration.Round(time.Millisecond), truncate(e.Query, 60),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print entry counts per answer path")

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
