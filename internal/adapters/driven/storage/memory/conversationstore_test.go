package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/core/domain"
)

func testConversation(id string, createdAt time.Time) *domain.Conversation {
	return &domain.Conversation{
		ID:            id,
		CollectionIDs: []string{"col-1"},
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestConversationStore_SaveConversation_PreservesTurnsOnUpdate(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	convo := testConversation("conv-1", time.Now().UTC())
	require.NoError(t, store.SaveConversation(ctx, convo))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", &domain.Turn{ID: "t1", Role: domain.RoleUser, Content: "hi"}))

	// Re-saving metadata must not wipe history.
	convo.CollectionIDs = []string{"col-1", "col-2"}
	require.NoError(t, store.SaveConversation(ctx, convo))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"col-1", "col-2"}, got.CollectionIDs)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "hi", got.Turns[0].Content)
}

func TestConversationStore_AppendTurn_InOrder(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, testConversation("conv-1", time.Now().UTC())))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", &domain.Turn{ID: "t1", Role: domain.RoleUser, Content: "question"}))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", &domain.Turn{ID: "t2", Role: domain.RoleAssistant, Content: "answer"}))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "t1", got.Turns[0].ID)
	assert.Equal(t, "t2", got.Turns[1].ID)
}

func TestConversationStore_AppendTurn_UnknownConversation(t *testing.T) {
	store := NewConversationStore()

	err := store.AppendTurn(context.Background(), "missing", &domain.Turn{ID: "t1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_MarkTurnFailed(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, testConversation("conv-1", time.Now().UTC())))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", &domain.Turn{ID: "t1", Role: domain.RoleUser}))

	require.NoError(t, store.MarkTurnFailed(ctx, "conv-1", "t1"))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, got.Turns[0].Failed)

	assert.ErrorIs(t, store.MarkTurnFailed(ctx, "conv-1", "missing"), domain.ErrNotFound)
}

func TestConversationStore_ListConversations_NewestFirst(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.SaveConversation(ctx, testConversation("older", base.Add(-time.Hour))))
	require.NoError(t, store.SaveConversation(ctx, testConversation("newer", base)))

	convos, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convos, 2)
	assert.Equal(t, "newer", convos[0].ID)
	assert.Equal(t, "older", convos[1].ID)
}

func TestEventLog_Since_FiltersAndPrunes(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()
	now := time.Now().UTC()

	// One event already past retention, one recent.
	require.NoError(t, log.Append(ctx, domain.StatusEvent{
		Seq: 1, SourceID: "doc-1", Severity: domain.SeverityInfo,
		Message: "ancient", Timestamp: now.Add(-domain.EventRetention - time.Hour),
	}))
	require.NoError(t, log.Append(ctx, domain.StatusEvent{
		Seq: 2, SourceID: "doc-1", Severity: domain.SeverityInfo,
		Message: "recent", Timestamp: now.Add(-time.Minute),
	}))

	events, err := log.Since(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "recent", events[0].Message)

	// The expired event is gone even for a wide window.
	events, err = log.Since(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
