package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

func newChunkCmd(load Loader) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Chunk raw decision and regulation PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, load, func(s *Services) error {
				reports, err := s.Pipeline.ChunkCorpus(cmd.Context(), limit)
				return printReports(cmd, reports, err)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum documents to process per source (0 = all)")
	return cmd
}

func newEmbedCmd(load Loader) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed chunked documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, load, func(s *Services) error {
				reports, err := s.Pipeline.EmbedCorpus(cmd.Context(), limit)
				return printReports(cmd, reports, err)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum documents to process per source (0 = all)")
	return cmd
}

func newStoreCmd(load Loader) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Load embedded chunks into the vector collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, load, func(s *Services) error {
				if reset {
					for _, target := range []domain.DocType{domain.DocTypeDecision, domain.DocTypeRegulation} {
						if err := s.Pipeline.ResetCollection(cmd.Context(), target); err != nil {
							return fmt.Errorf("reset %s collection: %w", target, err)
						}
					}
				}
				reports, err := s.Pipeline.StoreCorpus(cmd.Context())
				return printReports(cmd, reports, err)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop both collections before loading")
	return cmd
}

func printReports(cmd *cobra.Command, reports []domain.BatchReport, err error) error {
	if len(reports) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), domain.JoinReports(reports))
	}
	return err
}
