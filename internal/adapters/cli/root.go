package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

// CorpusPipeline is the bulk stage surface the CLI drives.
type CorpusPipeline interface {
	ports.CorpusPipeline
	ResetCollection(ctx context.Context, target domain.DocType) error
}

// Services are built lazily so that commands like parse run without any
// backing infrastructure.
type Services struct {
	Pipeline CorpusPipeline
	Analyzer ports.PenaltyAnalyzer
}

// Loader builds Services; the returned func releases them.
type Loader func(ctx context.Context) (*Services, func(), error)

func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:   "f1rag",
		Short: "F1 penalty fairness analysis",
		Long: `Builds a searchable corpus of FIA stewards' decisions and sporting
regulations, and answers questions about the fairness of race penalties.

The corpus is built in three resumable stages:
  f1rag chunk   extract text from raw PDFs and split it into chunks
  f1rag embed   compute embeddings for new chunks
  f1rag store   load embedded chunks into the vector collections`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newChunkCmd(load),
		newEmbedCmd(load),
		newStoreCmd(load),
		newQueryCmd(load),
		newParseCmd(),
		newMCPCmd(load),
	)
	return root
}

func withServices(cmd *cobra.Command, load Loader, fn func(*Services) error) error {
	if load == nil {
		return errors.New("services not configured")
	}
	services, release, err := load(cmd.Context())
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	return fn(services)
}
