package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/logger"
	"github.com/aquillm/aquillm/internal/postprocessors/chunker"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatConfig tunes retrieval and prompt assembly.
type ChatConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// ContextTokens bounds the retrieved-context portion of the prompt.
	// Lowest-ranked chunks are dropped first when over budget.
	ContextTokens int

	// HistoryTurns is the sliding window of prior turns included in the
	// prompt. Whole turns only; oldest dropped first.
	HistoryTurns int

	// MaxTokens is the completion generation cap.
	MaxTokens int

	// Temperature for completions.
	Temperature float64
}

// DefaultChatConfig returns sensible defaults.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		TopK:          8,
		ContextTokens: 3000,
		HistoryTurns:  10,
		MaxTokens:     1024,
		Temperature:   0.2,
	}
}

// markerPattern matches inline source reference markers like [S1].
var markerPattern = regexp.MustCompile(`\[S(\d+)\]`)

const systemPrompt = `You are a research assistant. Answer the question using ONLY the provided source excerpts.
Cite every claim with the inline marker of the excerpt it comes from, e.g. [S1] or [S3].
If the excerpts do not contain the answer, say so plainly and do not invent sources.`

// ChatService answers questions grounded in retrieved chunks. Each
// answer appends exactly one assistant turn; failures mark the user
// turn failed and append nothing, so history is never half-written.
//
// Answers cite sources through inline [S<n>] markers which are mapped
// back to the retrieved chunks in rank order.
type ChatService struct {
	convoStore driven.ConversationStore
	docStore   driven.DocumentStore
	colService driving.CollectionService
	embedder   driven.EmbeddingService
	vector     driven.VectorIndex
	completer  driven.CompletionService
	cfg        ChatConfig
}

// NewChatService creates the chat orchestrator.
func NewChatService(
	convoStore driven.ConversationStore,
	docStore driven.DocumentStore,
	colService driving.CollectionService,
	embedder driven.EmbeddingService,
	vector driven.VectorIndex,
	completer driven.CompletionService,
	cfg ChatConfig,
) *ChatService {
	def := DefaultChatConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.ContextTokens <= 0 {
		cfg.ContextTokens = def.ContextTokens
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = def.HistoryTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &ChatService{
		convoStore: convoStore,
		docStore:   docStore,
		colService: colService,
		embedder:   embedder,
		vector:     vector,
		completer:  completer,
		cfg:        cfg,
	}
}

// Open creates a conversation scoped to the given collections. Every
// collection must exist.
func (s *ChatService) Open(ctx context.Context, collectionIDs []string) (*domain.Conversation, error) {
	if len(collectionIDs) == 0 {
		return nil, fmt.Errorf("%w: conversation needs at least one collection", domain.ErrInvalidInput)
	}
	for _, id := range collectionIDs {
		if _, err := s.colService.Get(ctx, id); err != nil {
			return nil, fmt.Errorf("collection %s: %w", id, err)
		}
	}

	now := time.Now().UTC()
	convo := &domain.Conversation{
		ID:            uuid.New().String(),
		CollectionIDs: append([]string(nil), collectionIDs...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.convoStore.SaveConversation(ctx, convo); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return convo, nil
}

// Answer runs one question through retrieve → prompt → complete → cite.
func (s *ChatService) Answer(ctx context.Context, conversationID, message string) (*domain.Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	convo, err := s.convoStore.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	scope, err := s.colService.ExpandScope(ctx, convo.CollectionIDs)
	if err != nil {
		return nil, fmt.Errorf("expand scope: %w", err)
	}
	if len(scope) == 0 {
		return nil, domain.ErrScopeEmpty
	}

	// The user turn is committed before anything fallible runs; if a
	// later step fails it is marked failed rather than removed.
	userTurn := &domain.Turn{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.convoStore.AppendTurn(ctx, convo.ID, userTurn); err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	queryVec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		s.markFailed(convo.ID, userTurn.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}

	hits, err := s.vector.Search(ctx, queryVec, scope, s.cfg.TopK)
	if err != nil {
		s.markFailed(convo.ID, userTurn.ID)
		return nil, fmt.Errorf("search: %w", err)
	}

	sources, contextBlock, err := s.assembleContext(ctx, hits)
	if err != nil {
		s.markFailed(convo.ID, userTurn.ID)
		return nil, err
	}

	messages := s.assemblePrompt(convo.Turns, contextBlock, message)
	answer, err := s.completer.Complete(ctx, messages, driven.CompleteOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.markFailed(convo.ID, userTurn.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}

	citations := extractCitations(answer, sources)
	assistantTurn := &domain.Turn{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   answer,
		Citations: citations,
		// Ungrounded means no retrieved excerpts backed the answer; an
		// answer the model declined to cite is not the same thing.
		Ungrounded: len(sources) == 0,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.convoStore.AppendTurn(ctx, convo.ID, assistantTurn); err != nil {
		s.markFailed(convo.ID, userTurn.ID)
		return nil, fmt.Errorf("append assistant turn: %w", err)
	}

	logger.Debug("Answered in conversation %s with %d citations", convo.ID, len(citations))
	return assistantTurn, nil
}

// Conversation returns the conversation with citation staleness
// hydrated: a citation whose chunk no longer exists is flagged stale.
func (s *ChatService) Conversation(ctx context.Context, id string) (*domain.Conversation, error) {
	convo, err := s.convoStore.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range convo.Turns {
		for j := range convo.Turns[i].Citations {
			cit := &convo.Turns[i].Citations[j]
			if _, err := s.docStore.GetChunk(ctx, cit.ChunkID); err != nil {
				cit.Stale = true
			}
		}
	}
	return convo, nil
}

// source is one retrieved chunk offered to the model under a marker.
type source struct {
	chunk *domain.Chunk
	title string
}

// assembleContext hydrates hits into prompt source blocks, keeping rank
// order and dropping lowest-ranked chunks past the token budget.
func (s *ChatService) assembleContext(ctx context.Context, hits []driven.VectorHit) ([]source, string, error) {
	var (
		sources []source
		sb      strings.Builder
		used    int
	)

	titles := make(map[string]string)
	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			// Index and store can briefly disagree during re-ingestion;
			// skip rather than fail the whole answer.
			logger.Debug("hydrate chunk %s: %v", hit.ChunkID, err)
			continue
		}

		title, ok := titles[hit.DocumentID]
		if !ok {
			doc, err := s.docStore.GetDocument(ctx, hit.DocumentID)
			if err != nil {
				logger.Debug("hydrate document %s: %v", hit.DocumentID, err)
				continue
			}
			title = doc.Title
			titles[hit.DocumentID] = title
		}

		block := fmt.Sprintf("[S%d] %s (%s):\n%s\n\n", len(sources)+1, title, chunk.Locator, chunk.Content)
		cost := chunker.CountTokens(block)
		if used+cost > s.cfg.ContextTokens {
			break
		}
		used += cost
		sb.WriteString(block)
		sources = append(sources, source{chunk: chunk, title: title})
	}

	return sources, sb.String(), nil
}

// assemblePrompt builds the completion messages: system prompt with the
// retrieved excerpts, a sliding window of prior turns, the question.
func (s *ChatService) assemblePrompt(history []domain.Turn, contextBlock, question string) []driven.ChatMessage {
	system := systemPrompt
	if contextBlock != "" {
		system += "\n\nSource excerpts:\n\n" + contextBlock
	} else {
		system += "\n\nNo source excerpts were found for this question."
	}

	messages := []driven.ChatMessage{{Role: "system", Content: system}}

	window := history
	if len(window) > s.cfg.HistoryTurns {
		window = window[len(window)-s.cfg.HistoryTurns:]
	}
	for _, turn := range window {
		if turn.Failed {
			continue
		}
		messages = append(messages, driven.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, driven.ChatMessage{Role: "user", Content: question})
	return messages
}

// extractCitations maps inline markers in the answer back to sources.
// Markers are deduplicated in order of first occurrence; out-of-range
// markers are ignored.
func extractCitations(answer string, sources []source) []domain.Citation {
	matches := markerPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return nil
	}

	// First-occurrence order, not numeric order, so citations read in
	// the order the answer uses them.
	seen := make(map[int]bool)
	var order []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}

	citations := make([]domain.Citation, 0, len(order))
	for _, n := range order {
		src := sources[n-1]
		citations = append(citations, domain.Citation{
			ChunkID:    src.chunk.ID,
			DocumentID: src.chunk.DocumentID,
			Title:      src.title,
			Locator:    src.chunk.Locator.String(),
		})
	}
	return citations
}

// markFailed flags the user turn failed, best effort.
func (s *ChatService) markFailed(conversationID, turnID string) {
	if err := s.convoStore.MarkTurnFailed(context.Background(), conversationID, turnID); err != nil {
		logger.Warn("mark turn %s failed: %v", turnID, err)
	}
}
