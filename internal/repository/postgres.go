package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

const uniqueViolation = "23505"

// PostgresStore is a Store backed by PostgreSQL
type PostgresStore struct {
	db       DBTX
	beginner TxBeginner
}

// NewPostgresStore creates a store over a connection pool
func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{db: db, beginner: db}
}

func (s *PostgresStore) Users() UserRepository                     { return NewPGUserRepository(s.db) }
func (s *PostgresStore) PairingCodes() PairingCodeRepository       { return NewPGPairingCodeRepository(s.db) }
func (s *PostgresStore) Couples() CoupleRepository                 { return NewPGCoupleRepository(s.db) }
func (s *PostgresStore) QuickMessages() QuickMessageRepository     { return NewPGQuickMessageRepository(s.db) }
func (s *PostgresStore) SlideshowImages() SlideshowImageRepository { return NewPGSlideshowImageRepository(s.db) }

// InTx implements Store
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.beginner == nil {
		// already inside a transaction
		return fn(s)
	}

	tx, err := s.beginner.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&PostgresStore{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Warn().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
