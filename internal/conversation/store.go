package conversation

import "context"

// Store persists conversation transcripts, scoped by org and owning user.
type Store interface {
	// Create starts a new, empty conversation owned by userID within orgID.
	Create(ctx context.Context, orgID, userID string) (*Conversation, error)

	// Get returns a full conversation. Returns councilerr.ErrNotFound if it
	// does not exist, councilerr.ErrForbidden if userID does not own it.
	Get(ctx context.Context, orgID, userID, conversationID string) (*Conversation, error)

	// List returns summaries for every conversation userID owns within
	// orgID, newest first.
	List(ctx context.Context, orgID, userID string) ([]Summary, error)

	// AppendUserMessage appends a user turn, marks the conversation
	// "running", and returns the updated conversation (used to build LLM
	// history before the council runs). Returns councilerr.ErrConflict if
	// the conversation is already running a turn.
	AppendUserMessage(ctx context.Context, orgID, userID, conversationID, content string) (*Conversation, error)

	// AppendAssistantMessage appends the council's three-stage result and
	// clears the conversation back to "idle".
	AppendAssistantMessage(ctx context.Context, orgID, userID, conversationID string, msg Message) (*Conversation, error)

	// ReleaseProcessing clears a conversation back to "idle" without
	// appending a message, for callers that marked it "running" via
	// AppendUserMessage but then failed before producing an assistant
	// turn to append.
	ReleaseProcessing(ctx context.Context, orgID, userID, conversationID string) error

	// SetTitle updates a conversation's display title.
	SetTitle(ctx context.Context, orgID, userID, conversationID, title string) error

	// Delete removes a single conversation. Returns councilerr.ErrNotFound
	// if it does not exist, councilerr.ErrForbidden if not owned by userID.
	Delete(ctx context.Context, orgID, userID, conversationID string) error

	// DeleteAllForUser erases every conversation owned by userID within
	// orgID and returns the number deleted, for data-erasure requests.
	DeleteAllForUser(ctx context.Context, orgID, userID string) (int, error)
}
