package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquillm/aquillm/internal/core/domain"
)

var (
	askCollections  []string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Ask a question answered from the documents in the given collections
(including their sub-collections). The answer cites the passages it was
derived from.

Pass --conversation to continue an existing conversation; otherwise a
new one is opened and its id printed for follow-up questions.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askCollections, "collection", "c", nil, "collection ids to search (required for new conversations)")
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "continue an existing conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if services == nil || services.Chat == nil {
		return errors.New("chat service not configured")
	}

	ctx := cmd.Context()
	conversationID := askConversation

	if conversationID == "" {
		if len(askCollections) == 0 {
			return errors.New("--collection is required when starting a new conversation")
		}
		convo, err := services.Chat.Open(ctx, askCollections)
		if err != nil {
			return fmt.Errorf("open conversation: %w", err)
		}
		conversationID = convo.ID
		cmd.Printf("Conversation %s\n\n", conversationID)
	}

	turn, err := services.Chat.Answer(ctx, conversationID, args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	cmd.Println(turn.Content)

	if turn.Ungrounded {
		cmd.Println("\n(no sources found; this answer is not grounded in your documents)")
		return nil
	}

	if len(turn.Citations) > 0 {
		cmd.Println("\nSources:")
		for i, cit := range turn.Citations {
			cmd.Printf("  [%d] %s (%s)%s\n", i+1, cit.Title, cit.Locator, staleSuffix(cit))
		}
	}
	return nil
}

func staleSuffix(cit domain.Citation) string {
	if cit.Stale {
		return " [stale]"
	}
	return ""
}
