package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/studychat/internal/app"
	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

var errNoParticipant = errors.New("--prolific-id is required")

func NewTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect stored transcripts",
	}
	cmd.AddCommand(newTranscriptShowCmd())
	return cmd
}

func newTranscriptShowCmd() *cobra.Command {
	var (
		participantID string
		session       string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one participant's transcript as JSON",
		Long: `Print the stored transcript for a participant and session.

Examples:
  studychat transcript show --prolific-id 5f3c... --session 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(participantID) == "" {
				return errNoParticipant
			}
			return withApp(cmd.Context(), func(res *app.BuildResult) error {
				rec, err := res.Store.GetRecord(cmd.Context(), participantID, study.ParseSession(session))
				if errors.Is(err, transcript.ErrNotFound) {
					return fmt.Errorf("no session %s transcript for %s", study.ParseSession(session), participantID)
				}
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			})
		},
	}
	cmd.Flags().StringVar(&participantID, "prolific-id", "", "Participant identifier")
	cmd.Flags().StringVar(&session, "session", "1", "Session (1 or 2)")
	return cmd
}
