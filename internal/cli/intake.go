package cli

import (
	"fmt"
	"os"

	"talentmatch/internal/common"
	"talentmatch/internal/extract"
	"talentmatch/internal/pool"
	"talentmatch/internal/utils"

	"github.com/spf13/cobra"
)

var intakeCmd = &cobra.Command{
	Use:   "intake [resume.pdf]",
	Short: "Extract a resume PDF into the talent pool",
	Long: `Extract a candidate resume (PDF) into a structured record using the
configured AI provider, stamp it with a fresh id and cleared invitation
fields, and append it to the talent pool file.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if intakeConfig.OutputFormat == "" {
			intakeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(intakeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runIntake,
}

var intakeConfig common.CommandConfig

func init() {
	intakeCmd.Flags().StringVarP(&intakeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	intakeCmd.Flags().StringVar(&intakeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runIntake(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	filename := args[0]
	if err := utils.ValidateInputFile(filename); err != nil {
		return fmt.Errorf("invalid resume file: %w", err)
	}
	if !utils.IsPDFFile(filename) {
		logger.Warn("File may not be a PDF", "filename", filename)
	}

	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("cannot stat resume file: %w", err)
	}
	if cfg.App.MaxFileSize > 0 && info.Size() > cfg.App.MaxFileSize {
		return fmt.Errorf("resume file too large: %s (limit %s)",
			utils.FormatFileSize(info.Size()), utils.FormatFileSize(cfg.App.MaxFileSize))
	}

	pdf, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}

	extractor, err := extract.NewExtractor(cfg.Extract, logger)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}
	defer func() {
		if err := extractor.Close(); err != nil {
			logger.Warn("Failed to close extractor", "error", err.Error())
		}
	}()

	logger.Info("Starting resume intake",
		"file", filename,
		"size", utils.FormatFileSize(info.Size()))

	record, err := extractor.Extract(cmd.Context(), pdf)
	if err != nil {
		return fmt.Errorf("failed to extract resume: %w", err)
	}

	record = extract.AssignIntakeFields(record)

	store := pool.NewFileStore(cfg.Store.Path, logger)
	if err := store.Append(cmd.Context(), record); err != nil {
		return fmt.Errorf("failed to append candidate to talent pool: %w", err)
	}

	logger.Info("Resume intake completed successfully",
		"id", record.Identity("id"),
		"pool", cfg.Store.Path)

	return common.NewOutputHandler(logger).HandleOutput(record, intakeConfig)
}
