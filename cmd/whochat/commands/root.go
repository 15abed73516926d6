// Package commands defines all Cobra CLI commands for the whochat binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/melakudessie/WHO-AMR-chat/internal/audit"
	"github.com/melakudessie/WHO-AMR-chat/internal/config"
	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "whochat",
		Short: "Chat with WHO AMR reports and other PDF documents",
		Long: `whochat answers questions about a PDF document using retrieval-augmented
generation. Every answer is grounded in the document and cites the pages
it draws on.

Model and embedding providers are selected via environment variables
(MODEL_PROVIDER, EMBEDDING_PROVIDER) or a YAML config file
(~/.whochat/config.yaml). Groq, OpenAI, Ollama, and Gemini backends are
supported for generation; Ollama and OpenAI for embeddings.
See 'whochat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A .env in the working directory is optional.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.whochat/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
