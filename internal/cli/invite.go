package cli

import (
	"fmt"
	"strings"

	"talentmatch/internal/common"
	"talentmatch/internal/pool"
	"talentmatch/internal/types"

	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Write an interview invitation onto a talent pool record",
	Long: `Write a meeting token and status label onto a candidate record in the
talent pool. The candidate is addressed by id, falling back to email; a
record found via email with no stored id gets the supplied id backfilled.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if strings.TrimSpace(inviteMeetingID) == "" {
			return fmt.Errorf("--meeting-id is required")
		}
		if strings.TrimSpace(inviteStatus) == "" {
			return fmt.Errorf("--status is required")
		}
		if inviteID == "" && inviteEmail == "" {
			return fmt.Errorf("at least one of --id or --email is required")
		}
		if inviteConfig.OutputFormat == "" {
			inviteConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(inviteConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runInvite,
}

var (
	inviteConfig    common.CommandConfig
	inviteID        string
	inviteEmail     string
	inviteMeetingID string
	inviteStatus    string
)

func init() {
	inviteCmd.Flags().StringVar(&inviteID, "id", "", "Candidate id")
	inviteCmd.Flags().StringVar(&inviteEmail, "email", "", "Candidate email (fallback when id does not match)")
	inviteCmd.Flags().StringVar(&inviteMeetingID, "meeting-id", "", "Meeting token to write (required)")
	inviteCmd.Flags().StringVar(&inviteStatus, "status", "", "Status label to write (required)")
	inviteCmd.Flags().StringVarP(&inviteConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	inviteCmd.Flags().StringVar(&inviteConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runInvite(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	store := pool.NewFileStore(cfg.Store.Path, logger)

	var id any
	if inviteID != "" {
		id = inviteID
	}
	ref := pool.RefFrom(id, inviteEmail)

	update := types.InvitationUpdate{
		MeetingID: inviteMeetingID,
		Status:    inviteStatus,
	}

	logger.Info("Sending interview invitation",
		"id", ref.ID,
		"email", ref.Email,
		"meeting_id", inviteMeetingID,
		"pool", cfg.Store.Path)

	record, err := store.Update(cmd.Context(), ref, update.Fields())
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}

	logger.Info("Interview invitation recorded successfully")

	return common.NewOutputHandler(logger).HandleOutput(record, inviteConfig)
}
