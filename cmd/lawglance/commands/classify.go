package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/safety"
)

// NewClassifyCmd constructs the `lawglance classify` command, which prints
// the safety label for a piece of text without calling any model.
func NewClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Print the safety label (ok, illegal, emergency) for text",
		Long: `Run the rule-based safety classifier on text and print its label.

No model or vector store is contacted. Useful for checking how a
question will be triaged before it reaches the pipeline.

Examples:
  lawglance classify "How can I evade taxes?"
  lawglance classify "What is Section 302 BNS?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := safety.Default().Classify(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
}
