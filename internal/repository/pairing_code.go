package repository

import (
	"context"
	"fmt"
	"time"

	"couples-backend/internal/models"
)

// pairingCodeLockClass namespaces advisory locks taken on code values
const pairingCodeLockClass int32 = 0x7061

type pgPairingCodeRepository struct {
	db DBTX
}

// NewPGPairingCodeRepository creates a pairing code repository over db
func NewPGPairingCodeRepository(db DBTX) PairingCodeRepository {
	return &pgPairingCodeRepository{db: db}
}

// Create inserts a pairing code and sets its ID
func (r *pgPairingCodeRepository) Create(ctx context.Context, code *models.PairingCode) error {
	query := `
		INSERT INTO pairing_codes (code, owner_user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		code.Code, code.OwnerUserID, code.ExpiresAt, code.Used, code.CreatedAt,
	).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to create pairing code: %w", err)
	}
	return nil
}

// InvalidateByOwner marks every unused code of the owner as used
func (r *pgPairingCodeRepository) InvalidateByOwner(ctx context.Context, ownerID int64) (int64, error) {
	query := `UPDATE pairing_codes SET used = TRUE WHERE owner_user_id = $1 AND used = FALSE`
	result, err := r.db.Exec(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate pairing codes: %w", err)
	}
	return result.RowsAffected(), nil
}

// LockCode takes a transaction-scoped advisory lock on the code value
func (r *pgPairingCodeRepository) LockCode(ctx context.Context, code string) error {
	query := `SELECT pg_advisory_xact_lock($1, hashtext($2))`
	if _, err := r.db.Exec(ctx, query, pairingCodeLockClass, code); err != nil {
		return fmt.Errorf("failed to lock pairing code: %w", err)
	}
	return nil
}

// ActiveCodeExists checks if an unused, unexpired code with this value exists
func (r *pgPairingCodeRepository) ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM pairing_codes WHERE code = $1 AND used = FALSE AND expires_at > $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, code, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pairing code: %w", err)
	}
	return exists, nil
}

// GetActiveForUpdate retrieves and row-locks the active code with this value
func (r *pgPairingCodeRepository) GetActiveForUpdate(ctx context.Context, code string, now time.Time) (*models.PairingCode, error) {
	query := `
		SELECT id, code, owner_user_id, expires_at, used, created_at
		FROM pairing_codes
		WHERE code = $1 AND used = FALSE AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	var pc models.PairingCode
	err := r.db.QueryRow(ctx, query, code, now).Scan(
		&pc.ID, &pc.Code, &pc.OwnerUserID, &pc.ExpiresAt, &pc.Used, &pc.CreatedAt,
	)
	if err != nil {
		return nil, notFound("pairing code", err)
	}
	return &pc, nil
}

// MarkUsed consumes a code
func (r *pgPairingCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `UPDATE pairing_codes SET used = TRUE WHERE id = $1 AND used = FALSE`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark pairing code used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pairing code not found: %w", ErrNotFound)
	}
	return nil
}

// DeleteStale removes used codes and codes that expired before now
func (r *pgPairingCodeRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM pairing_codes WHERE used = TRUE OR expires_at < $1`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale pairing codes: %w", err)
	}
	return result.RowsAffected(), nil
}
