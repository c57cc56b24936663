package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/metadata"
)

func newQueryCmd(load Loader) *cobra.Command {
	var (
		model  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Assess the fairness of a penalty",
		Long: `Answers a question about a penalty using the stewards' decision for the
incident, similar past decisions and the sporting regulations. Include a
decision document URL in the question to analyse that document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := domain.ParseModelChoice(model)
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			return withServices(cmd, load, func(s *Services) error {
				analysis, err := s.Analyzer.Answer(cmd.Context(), prompt, choice)
				if err != nil {
					return fmt.Errorf("query failed: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, analysis)
				}
				fmt.Fprintln(cmd.OutOrStdout(), analysis.Answer)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", string(domain.ModelDefault), "model choice: default or finetuned")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis with its context as JSON")
	return cmd
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text]",
		Short: "Print the metadata parsed from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := metadata.NormalizeText(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("text is empty")
			}
			return writeJSON(cmd, metadata.Parse(text))
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
