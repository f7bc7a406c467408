// Package commands defines all Cobra CLI commands for the lawglance binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/audit"
	"github.com/54b3r/lawglance-go/internal/config"
	"github.com/54b3r/lawglance-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// envFile holds the --env-file flag value.
var envFile string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lawglance",
		Short: "LawGlance: legal awareness answers grounded in Indian statutes",
		Long: `LawGlance answers everyday legal questions about Indian law using
retrieval-augmented generation over an ingested statute corpus (the
Constitution, BNS, BNSS, BSA, Consumer Protection Act and others).

Every answer carries a "not legal advice" disclaimer. Questions about
self-harm or violence get emergency guidance instead of an answer, and
requests for help with illegal activity are refused.

Settings are read from the environment, a .env file and an optional YAML
config file (~/.lawglance/config.yaml). Environment variables always win.
See 'lawglance --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			if _, err := config.LoadDotEnv(envFile, log); err != nil {
				return err
			}
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.lawglance/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file; missing files are ignored")

	root.AddCommand(
		NewAskCmd(),
		NewClassifyCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
