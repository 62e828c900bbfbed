package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Starts a multi-turn conversation with the staged documents. Follow-up
questions see the recent history, so "how hot does it run?" after a
question about a reactor asks about the reactor.

Commands inside the session:
  /refresh   re-synchronise the index with the stage
  /end       discard this session's history
  /quit      leave the chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := initEngine(); err != nil {
		return err
	}
	defer closeEngine()

	if err := loadIndex(cmd); err != nil {
		return err
	}

	sessionID := uuid.NewString()
	cmd.Printf("Chatting with stage %s. Type /quit to leave.\n\n", cfg.Stage)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/end":
			if err := chatService.EndSession(cmd.Context(), sessionID); err != nil {
				cmd.PrintErrf("ending session: %v\n", err)
				continue
			}
			sessionID = uuid.NewString()
			cmd.Println("Session history discarded.")
			continue
		case "/refresh":
			result, err := indexerService.Refresh(cmd.Context())
			if err != nil {
				cmd.PrintErrf("refresh failed: %v\n", err)
				continue
			}
			printRefreshResult(cmd, result)
			continue
		}

		answer, err := chatService.Ask(cmd.Context(), sessionID, line)
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		outputAnswer(cmd, answer)
		cmd.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
