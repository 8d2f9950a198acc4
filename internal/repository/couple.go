package repository

import (
	"context"
	"fmt"

	"couples-backend/internal/models"
)

type pgCoupleRepository struct {
	db DBTX
}

// NewPGCoupleRepository creates a couple repository over db
func NewPGCoupleRepository(db DBTX) CoupleRepository {
	return &pgCoupleRepository{db: db}
}

// Create inserts a couple and sets its ID
func (r *pgCoupleRepository) Create(ctx context.Context, couple *models.Couple) error {
	query := `
		INSERT INTO couples (user1_id, user2_id, paired_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, couple.User1ID, couple.User2ID, couple.PairedAt).Scan(&couple.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user is already in a couple: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create couple: %w", err)
	}
	return nil
}

// GetByUserID retrieves the couple a user belongs to
func (r *pgCoupleRepository) GetByUserID(ctx context.Context, userID int64) (*models.Couple, error) {
	query := `
		SELECT id, user1_id, user2_id, paired_at
		FROM couples
		WHERE user1_id = $1 OR user2_id = $1
		LIMIT 1
	`
	var couple models.Couple
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&couple.ID, &couple.User1ID, &couple.User2ID, &couple.PairedAt,
	)
	if err != nil {
		return nil, notFound("couple", err)
	}
	return &couple, nil
}

// LockByID row-locks a couple until the surrounding transaction ends
func (r *pgCoupleRepository) LockByID(ctx context.Context, id int64) error {
	query := `SELECT id FROM couples WHERE id = $1 FOR UPDATE`
	var locked int64
	if err := r.db.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		return notFound("couple", err)
	}
	return nil
}
