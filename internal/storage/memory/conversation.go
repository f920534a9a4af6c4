package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// ConversationStore is an in-memory conversation store.
type ConversationStore struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*types.Conversation
}

// NewConversationStore creates an empty ConversationStore.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{convs: make(map[uuid.UUID]*types.Conversation)}
}

// Create stores a conversation, assigning an id if unset.
func (s *ConversationStore) Create(ctx context.Context, conv *types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	stored := *conv
	s.convs[conv.ID] = &stored
	return nil
}

// GetByID returns a conversation owned by the user.
func (s *ConversationStore) GetByID(ctx context.Context, id, userID uuid.UUID) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok || conv.UserID != userID {
		return nil, postgres.ErrNotFound
	}
	out := *conv
	return &out, nil
}

// UpdateContext replaces the stored context map.
func (s *ConversationStore) UpdateContext(ctx context.Context, id uuid.UUID, context map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return postgres.ErrNotFound
	}
	conv.Context = context
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateStatus updates the lifecycle status.
func (s *ConversationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ConversationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return postgres.ErrNotFound
	}
	conv.Status = status
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// MessageStore is an in-memory append-only message store.
type MessageStore struct {
	mu   sync.Mutex
	msgs map[uuid.UUID][]types.Message
}

// NewMessageStore creates an empty MessageStore.
func NewMessageStore() *MessageStore {
	return &MessageStore{msgs: make(map[uuid.UUID][]types.Message)}
}

// Create appends a message to its conversation.
func (s *MessageStore) Create(ctx context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()
	s.msgs[msg.ConversationID] = append(s.msgs[msg.ConversationID], *msg)
	return nil
}

// ListByConversation returns messages in append order.
func (s *MessageStore) ListByConversation(ctx context.Context, convID uuid.UUID) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Message, len(s.msgs[convID]))
	copy(out, s.msgs[convID])
	return out, nil
}
