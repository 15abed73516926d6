package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melakudessie/WHO-AMR-chat/internal/embedder"
	"github.com/melakudessie/WHO-AMR-chat/internal/extract"
	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
	"github.com/melakudessie/WHO-AMR-chat/internal/pipeline"
	"github.com/melakudessie/WHO-AMR-chat/internal/provider"
)

// NewAskCmd constructs the `whochat ask` command, which answers a single
// question about a PDF without starting the server.
func NewAskCmd() *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a PDF document",
		Long: `Index a PDF and answer one question about it, printing the answer and
the pages it cites.

The document is indexed in memory for the lifetime of the command; for
repeated questions against the same document use 'whochat serve'.

Examples:
  whochat ask --pdf report.pdf "what are the key findings?"
  whochat ask --pdf glass-2022.pdf "which pathogens showed rising resistance?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			content, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			pages, skipped, err := extract.PDFPages(content)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if len(skipped) > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d page(s) could not be extracted\n", len(skipped))
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}
			gen, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			pipe, err := pipeline.New(emb, gen, optionsFromEnv())
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			stats, err := pipe.Ingest(ctx, pages)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Fprintf(os.Stderr, "indexed %d passages from %d pages\n", stats.Passages, stats.Pages)

			answer, err := pipe.Query(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if answer.Failure != nil {
				return fmt.Errorf("ask: generation failed (%s): %s", answer.Failure.Category, answer.Failure.Message)
			}

			fmt.Println(answer.Text)
			if len(answer.CitedPages) > 0 {
				cites := make([]string, len(answer.CitedPages))
				for i, p := range answer.CitedPages {
					cites[i] = fmt.Sprintf("p. %d", p)
				}
				fmt.Printf("\nSources: %s\n", strings.Join(cites, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Path to the PDF document (required)")
	_ = cmd.MarkFlagRequired("pdf")

	return cmd
}
