package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/legal"
	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/store"
	"github.com/54b3r/lawglance-go/internal/tracing"
)

// NewAskCmd constructs the `lawglance ask` command, which answers a single
// question and prints the result to stdout.
func NewAskCmd() *cobra.Command {
	var asJSON bool
	var direct bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a legal question",
		Long: `Ask a question about Indian law and print the answer with its sources.

By default the question goes through the full pipeline: safety check,
retrieval from the vector store, grounded generation and disclaimer
enforcement. --direct skips retrieval and asks the model directly.

Examples:
  lawglance ask "What does Article 21 of the Constitution say?"
  lawglance ask --json "How do I file a consumer complaint?"
  lawglance ask --direct "What is an FIR?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)
			question := strings.Join(args, " ")

			flush, _ := tracing.Setup(tracing.ConfigFromEnv(), log)
			defer flush()

			deps, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer deps.Close()

			ql := openQueryLog(log)
			if ql != nil {
				defer func() { _ = ql.Close() }()
			}

			start := time.Now()
			if direct {
				rep, err := deps.pipeline.Reply(ctx, question)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				if asJSON {
					return writeJSON(rep)
				}
				fmt.Fprintln(os.Stdout, rep.Text)
				return nil
			}

			res, err := deps.pipeline.Answer(ctx, question)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if ql != nil {
				if err := ql.Record(ctx, store.Entry{
					Channel:    "cli",
					Query:      strings.TrimSpace(question),
					Safety:     string(res.Safety),
					Path:       string(res.Path),
					HasContext: res.HasContext,
					Citations:  len(res.Citations),
					Duration:   time.Since(start),
				}); err != nil {
					log.Warn("query log write failed", "error", err)
				}
			}

			if asJSON {
				return writeJSON(res)
			}
			printResult(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&direct, "direct", false, "Skip retrieval and ask the model directly")

	return cmd
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("ask: encode result: %w", err)
	}
	return nil
}

func printResult(res legal.Result) {
	fmt.Fprintln(os.Stdout, res.Answer)
	if len(res.Citations) == 0 {
		return
	}
	fmt.Fprintln(os.Stdout, "\nSources:")
	for i, c := range res.Citations {
		line := fmt.Sprintf("  [%d] %s", i+1, c.SourceTitle)
		if c.Section != "" {
			line += ", " + c.Section
		}
		if c.Page != "" {
			line += " (p. " + c.Page + ")"
		}
		fmt.Fprintln(os.Stdout, line)
	}
}
