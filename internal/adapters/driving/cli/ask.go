package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the staged documents",
	Long: `Answers one question from the indexed documents and prints the answer
with citations. Use --session to continue an earlier conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session ID to continue (default: a new session)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initEngine(); err != nil {
		return err
	}
	defer closeEngine()

	if err := loadIndex(cmd); err != nil {
		return err
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := chatService.Ask(cmd.Context(), sessionID, args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswer(cmd, answer)
	cmd.Printf("\nSession: %s\n", sessionID)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s (%d-%d)\n", i+1, c.DocumentID, c.Start, c.End)
		}
	}
}
