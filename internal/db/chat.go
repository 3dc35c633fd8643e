package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles assistant chat messages.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// Create appends a message.
func (r *ChatRepository) Create(ctx context.Context, m *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, user_id, role, content, generation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		RETURNING created_at
	`
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query, m.ID, m.UserID, m.Role, m.Content, m.GenerationID).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListRecent returns the user's latest limit messages in ascending creation order.
func (r *ChatRepository) ListRecent(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	query := `
		SELECT id, user_id, role, content, generation_id, created_at FROM (
			SELECT id, user_id, role, content, generation_id, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.GenerationID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat messages: %w", err)
	}
	return messages, nil
}

// DeleteForUser removes all of a user's messages.
func (r *ChatRepository) DeleteForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM chat_messages WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("deleting chat messages: %w", err)
	}
	return nil
}
