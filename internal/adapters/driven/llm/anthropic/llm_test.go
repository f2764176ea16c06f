package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

func TestNewCompletionService_RequiresAPIKey(t *testing.T) {
	_, err := NewCompletionService(Config{})
	assert.Error(t, err)
}

func TestCompletionService_Complete_LiftsSystemPrompt(t *testing.T) {
	var gotReq messagesRequest
	var gotKey, gotVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"The answer "},{"type":"text","text":"is attention [S1]."}],"stop_reason":"end_turn"}`)) //nolint:errcheck
	}))
	defer server.Close()

	svc, err := NewCompletionService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	answer, err := svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "Answer only from the excerpts."},
		{Role: "user", Content: "How does the model relate tokens?"},
	}, driven.CompleteOptions{})
	require.NoError(t, err)

	// Text blocks are concatenated in order.
	assert.Equal(t, "The answer is attention [S1].", answer)

	// The system message becomes a top-level field, not a message.
	assert.Equal(t, "Answer only from the excerpts.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, 1024, gotReq.MaxTokens)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
}

func TestCompletionService_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"max_tokens required"}}`)) //nolint:errcheck
	}))
	defer server.Close()

	svc, err := NewCompletionService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "hello"},
	}, driven.CompleteOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens required")
}

func TestCompletionService_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`)) //nolint:errcheck
	}))
	defer server.Close()

	svc, err := NewCompletionService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "hello"},
	}, driven.CompleteOptions{})
	assert.Error(t, err)
}
