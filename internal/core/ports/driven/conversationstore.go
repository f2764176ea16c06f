package driven

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// ConversationStore persists conversations and their turns.
// Turns are append-only: the store exposes no way to remove one.
type ConversationStore interface {
	// SaveConversation stores or updates conversation metadata.
	SaveConversation(ctx context.Context, convo *domain.Conversation) error

	// GetConversation retrieves a conversation with all turns in order.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// AppendTurn appends one turn to a conversation.
	AppendTurn(ctx context.Context, conversationID string, turn *domain.Turn) error

	// MarkTurnFailed flags an existing turn as failed.
	MarkTurnFailed(ctx context.Context, conversationID, turnID string) error

	// ListConversations returns all conversations, newest first.
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
}
