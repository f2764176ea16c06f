package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of
// driven.ConversationStore. Turns are append-only.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]domain.Conversation)}
}

// SaveConversation stores or updates conversation metadata. Existing
// turns are preserved.
func (s *ConversationStore) SaveConversation(_ context.Context, convo *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *convo
	if existing, ok := s.conversations[convo.ID]; ok {
		stored.Turns = existing.Turns
	}
	s.conversations[convo.ID] = stored
	return nil
}

// GetConversation retrieves a conversation with all turns in order.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convo, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := convo
	out.Turns = append([]domain.Turn(nil), convo.Turns...)
	return &out, nil
}

// AppendTurn appends one turn to a conversation.
func (s *ConversationStore) AppendTurn(_ context.Context, conversationID string, turn *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	convo, ok := s.conversations[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	convo.Turns = append(convo.Turns, *turn)
	convo.UpdatedAt = time.Now().UTC()
	s.conversations[conversationID] = convo
	return nil
}

// MarkTurnFailed flags an existing turn as failed.
func (s *ConversationStore) MarkTurnFailed(_ context.Context, conversationID, turnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	convo, ok := s.conversations[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range convo.Turns {
		if convo.Turns[i].ID == turnID {
			convo.Turns[i].Failed = true
			s.conversations[conversationID] = convo
			return nil
		}
	}
	return domain.ErrNotFound
}

// ListConversations returns all conversations, newest first.
func (s *ConversationStore) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Conversation, 0, len(s.conversations))
	for id := range s.conversations {
		result = append(result, s.conversations[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}
