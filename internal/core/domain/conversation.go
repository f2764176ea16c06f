package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation links an assistant turn back to the chunk it was grounded on.
// Citations survive chunk deletion; they are flagged stale instead of
// being invalidated.
type Citation struct {
	// ChunkID is the cited chunk.
	ChunkID string

	// DocumentID is the chunk's owning document.
	DocumentID string

	// Title is the document title at citation time.
	Title string

	// Locator is the display position within the document.
	Locator string

	// Stale is set when the cited chunk no longer exists (the document
	// was deleted or re-ingested after the turn was created).
	Stale bool
}

// Turn is one message in a conversation. Turns are append-only and never
// mutated after creation, except for the Failed and Stale flags.
type Turn struct {
	// ID is the unique identifier for the turn.
	ID string

	// Role is user or assistant.
	Role Role

	// Content is the message text.
	Content string

	// Citations reference the chunks an assistant turn was derived from.
	// Empty for user turns.
	Citations []Citation

	// Failed marks a user turn whose answer could not be produced.
	Failed bool

	// Ungrounded marks an assistant turn produced with zero retrieved
	// chunks, so callers can warn the user.
	Ungrounded bool

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time
}

// Conversation is an ordered sequence of turns scoped to a set of
// collections. Retrieval for every turn is restricted to that scope.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// CollectionIDs is the retrieval scope.
	CollectionIDs []string

	// Turns is the ordered message history.
	Turns []Turn

	// CreatedAt is when the conversation was opened.
	CreatedAt time.Time

	// UpdatedAt is when the last turn was appended.
	UpdatedAt time.Time
}
