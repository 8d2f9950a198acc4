package repository

import (
	"context"
	"fmt"
	"slices"

	"couples-backend/internal/models"
)

type pgUserRepository struct {
	db DBTX
}

// NewPGUserRepository creates a user repository over db
func NewPGUserRepository(db DBTX) UserRepository {
	return &pgUserRepository{db: db}
}

// Create inserts a user and sets its ID
func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, display_name, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		user.Username, user.PasswordHash, user.DisplayName, user.DateOfBirth, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *pgUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, date_of_birth, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.DateOfBirth, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, date_of_birth, created_at
		FROM users
		WHERE username = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.DateOfBirth, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}

// Update saves the mutable profile fields of a user
func (r *pgUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET display_name = $1, password_hash = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, user.DisplayName, user.PasswordHash, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

// LockForUpdate locks user rows in ascending id order so concurrent callers cannot deadlock
func (r *pgUserRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	query := `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := r.db.Query(ctx, query, sorted)
	if err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	if locked != len(slices.Compact(sorted)) {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}
