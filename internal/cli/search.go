package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"talentmatch/internal/common"
	"talentmatch/internal/match"
	"talentmatch/internal/types"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [candidates-file]",
	Short: "Rank a batch of candidates against a recruiter query",
	Long: `Rank a JSON file of candidate records against a free-text query using
the configured similarity service. The file must contain a JSON array of
candidate records; at most 20 are scored per run. Results are sorted by
descending match percentage.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if strings.TrimSpace(searchQuery) == "" {
			return fmt.Errorf("--query is required")
		}
		// Apply default format if not specified
		if searchConfig.OutputFormat == "" {
			searchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(searchConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runSearch,
}

var (
	searchConfig common.CommandConfig
	searchQuery  string
	searchJob    string
)

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Free-text recruiter query (required)")
	searchCmd.Flags().StringVar(&searchJob, "job", "", "Optional job context (defaults to the query)")
	searchCmd.Flags().StringVarP(&searchConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	searchCmd.Flags().StringVar(&searchConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = searchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	oracle := match.NewOracleClient(cfg.Oracle, logger)
	ranker := match.NewRanker(oracle, cfg.Oracle, logger)

	createInput := func(contents []string) (types.MatchQuery, error) {
		if len(contents) != 1 {
			return types.MatchQuery{}, fmt.Errorf("expected 1 file path, got %d", len(contents))
		}

		var candidates []any
		dec := json.NewDecoder(bytes.NewReader([]byte(contents[0])))
		dec.UseNumber()
		if err := dec.Decode(&candidates); err != nil {
			return types.MatchQuery{}, fmt.Errorf("candidates file must contain a JSON array: %w", err)
		}

		return types.MatchQuery{
			Query:      searchQuery,
			Job:        searchJob,
			Candidates: candidates,
		}, nil
	}

	logDetails := func(input types.MatchQuery, cfg common.CommandConfig) {
		logger.Info("Starting candidate search",
			"query_chars", len(input.Query),
			"candidates", len(input.Candidates),
			"output_format", cfg.OutputFormat)
	}

	searchOperation := func(ctx context.Context, input types.MatchQuery) ([]types.ScoredCandidate, error) {
		return ranker.Rank(ctx, input)
	}

	err := common.RunCommand(
		cmd.Context(),
		logger,
		searchConfig,
		args,
		createInput,
		searchOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to rank candidates: %w", err)
	}
	logger.Info("Candidate search completed successfully")
	return nil
}
