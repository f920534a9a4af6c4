package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

// MessageRepository handles database operations for messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create appends a message to its conversation.
func (r *MessageRepository) Create(ctx context.Context, msg *types.Message) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, role, content, content_type, media_url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		msg.ConversationID, msg.Role, msg.Content, msg.ContentType, msg.MediaURL, msg.Metadata,
	)
	if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByConversation returns all messages for a conversation, ordered by
// creation time.
func (r *MessageRepository) ListByConversation(ctx context.Context, convID uuid.UUID) ([]types.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, content_type, media_url, metadata, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at`, convID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.ContentType, &m.MediaURL, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
