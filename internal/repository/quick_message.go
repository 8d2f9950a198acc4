package repository

import (
	"context"
	"fmt"

	"couples-backend/internal/models"
)

type pgQuickMessageRepository struct {
	db DBTX
}

// NewPGQuickMessageRepository creates a quick message repository over db
func NewPGQuickMessageRepository(db DBTX) QuickMessageRepository {
	return &pgQuickMessageRepository{db: db}
}

// Create inserts a message and sets its ID
func (r *pgQuickMessageRepository) Create(ctx context.Context, msg *models.QuickMessage) error {
	query := `
		INSERT INTO quick_messages (couple_id, content, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, msg.CoupleID, msg.Content, msg.CreatedByUserID, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create quick message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *pgQuickMessageRepository) GetByID(ctx context.Context, id int64) (*models.QuickMessage, error) {
	query := `
		SELECT id, couple_id, content, created_by_user_id, created_at
		FROM quick_messages
		WHERE id = $1
	`
	var msg models.QuickMessage
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.CoupleID, &msg.Content, &msg.CreatedByUserID, &msg.CreatedAt,
	)
	if err != nil {
		return nil, notFound("quick message", err)
	}
	return &msg, nil
}

// ListByCouple retrieves a couple's messages, oldest first
func (r *pgQuickMessageRepository) ListByCouple(ctx context.Context, coupleID int64) ([]*models.QuickMessage, error) {
	query := `
		SELECT id, couple_id, content, created_by_user_id, created_at
		FROM quick_messages
		WHERE couple_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quick messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.QuickMessage{}
	for rows.Next() {
		var msg models.QuickMessage
		if err := rows.Scan(&msg.ID, &msg.CoupleID, &msg.Content, &msg.CreatedByUserID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quick message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quick messages: %w", err)
	}
	return messages, nil
}

// CountByCouple counts a couple's messages
func (r *pgQuickMessageRepository) CountByCouple(ctx context.Context, coupleID int64) (int, error) {
	query := `SELECT COUNT(*) FROM quick_messages WHERE couple_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, query, coupleID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count quick messages: %w", err)
	}
	return total, nil
}

// Delete deletes a message by ID
func (r *pgQuickMessageRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM quick_messages WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete quick message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("quick message not found: %w", ErrNotFound)
	}
	return nil
}
