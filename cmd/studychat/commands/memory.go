package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/studychat/internal/app"
)

func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage session-2 memory statements",
		Long: `Memory statements are short facts about a participant that are injected
into session-2 prompts when MEMORY_SOURCE=statements and memory is enabled.`,
	}
	cmd.AddCommand(newMemoryAddCmd(), newMemoryListCmd(), newMemoryDeriveCmd())
	return cmd
}

func newMemoryAddCmd() *cobra.Command {
	var (
		participantID string
		statements    []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add memory statements for a participant",
		Long: `Add one or more memory statements.

Examples:
  studychat memory add --prolific-id abc --statement "Has a dog named Pip"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(participantID) == "" {
				return errNoParticipant
			}
			var cleaned []string
			for _, s := range statements {
				if s = strings.TrimSpace(s); s != "" {
					cleaned = append(cleaned, s)
				}
			}
			if len(cleaned) == 0 {
				return fmt.Errorf("no statements provided")
			}
			return withApp(cmd.Context(), func(res *app.BuildResult) error {
				if err := res.Store.AppendMemoryStatements(cmd.Context(), participantID, cleaned); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d statement(s) for %s\n", len(cleaned), participantID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&participantID, "prolific-id", "", "Participant identifier")
	cmd.Flags().StringArrayVar(&statements, "statement", nil, "Statement text (repeatable)")
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	var participantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a participant's memory statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(participantID) == "" {
				return errNoParticipant
			}
			return withApp(cmd.Context(), func(res *app.BuildResult) error {
				items, err := res.Store.MemoryStatements(cmd.Context(), participantID)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no memory statements")
					return nil
				}
				for _, item := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", item.Statement)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&participantID, "prolific-id", "", "Participant identifier")
	return cmd
}

func newMemoryDeriveCmd() *cobra.Command {
	var participantID string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive memory statements from the session-1 transcript",
		Long: `Ask the completion model to condense a participant's session-1 transcript
into short factual statements and store them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(participantID) == "" {
				return errNoParticipant
			}
			return withApp(cmd.Context(), func(res *app.BuildResult) error {
				statements, err := res.Chat.DeriveMemory(cmd.Context(), participantID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "derived %d statement(s) for %s\n", len(statements), participantID)
				for _, s := range statements {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", s)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&participantID, "prolific-id", "", "Participant identifier")
	return cmd
}
