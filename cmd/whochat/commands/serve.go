package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/melakudessie/WHO-AMR-chat/internal/embedder"
	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
	"github.com/melakudessie/WHO-AMR-chat/internal/provider"
	"github.com/melakudessie/WHO-AMR-chat/internal/server"
)

// NewServeCmd constructs the `whochat serve` command, which starts the HTTP
// server for session-based document chat.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the whochat HTTP server",
		Long: `Start the whochat HTTP server on localhost.

The server exposes a REST API: create a session, upload a PDF (or page
text) into it, then chat against the document. Answers cite the pages
they draw on.

Examples:
  whochat serve
  whochat serve --port 9090
  MODEL_PROVIDER=gemini whochat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("provider", os.Getenv("MODEL_PROVIDER")),
				slog.String("embedding_provider", os.Getenv("EMBEDDING_PROVIDER")),
			)

			gen, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			// Embedder construction is deferred to first use so the server
			// can start (and report readiness honestly) before the embedding
			// backend is reachable.
			lazyEmb := embedder.NewLazy(embedder.NewFromEnv)

			historyStore, closeStore := openHistoryStore(log)
			defer closeStore()

			defaults := optionsFromEnv()
			if err := defaults.Validate(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(pipelineFactory(lazyEmb, gen), &server.Config{
				Host:           host,
				Port:           port,
				Logger:         log,
				Pingers:        buildPingers(lazyEmb, gen),
				APIKey:         os.Getenv("WHOCHAT_API_KEY"),
				Store:          historyStore,
				DefaultOptions: &defaults,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
