package driving

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// ChatService answers natural-language questions grounded in retrieved
// chunks, with source citations.
type ChatService interface {
	// Open creates a conversation scoped to a set of collections.
	Open(ctx context.Context, collectionIDs []string) (*domain.Conversation, error)

	// Answer appends the user message to the conversation, retrieves
	// relevant chunks within the conversation's scope, invokes the
	// completion capability and appends exactly one cited assistant
	// turn. On failure no assistant turn is appended and the user turn
	// is marked failed.
	Answer(ctx context.Context, conversationID, message string) (*domain.Turn, error)

	// Conversation returns the conversation with citations hydrated;
	// citations whose chunk no longer exists are flagged stale.
	Conversation(ctx context.Context, id string) (*domain.Conversation, error)
}
