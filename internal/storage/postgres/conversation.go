package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

const conversationColumns = `id, user_id, trip_id, context, status, created_at, updated_at`

// ConversationRepository handles database operations for conversations.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func scanConversation(row pgx.Row) (*types.Conversation, error) {
	var c types.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.TripID, &c.Context, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new conversation for the given user.
func (r *ConversationRepository) Create(ctx context.Context, conv *types.Conversation) error {
	if conv.Context == nil {
		conv.Context = map[string]any{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (user_id, trip_id, context, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		conv.UserID, conv.TripID, conv.Context, conv.Status,
	)
	if err := row.Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetByID returns a conversation if it exists and belongs to the given user.
func (r *ConversationRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*types.Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// UpdateContext replaces the conversation context with an already-merged map.
func (r *ConversationRepository) UpdateContext(ctx context.Context, id uuid.UUID, context map[string]any) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET context = $2, updated_at = now() WHERE id = $1`, id, context)
	if err != nil {
		return fmt.Errorf("update context: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a conversation to a new lifecycle state.
func (r *ConversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ConversationStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
