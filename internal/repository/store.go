package repository

import (
	"context"
	"errors"
	"time"

	"couples-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint
	ErrDuplicate = errors.New("record already exists")
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions
type TxBeginner interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// UserRepository handles persistence of user accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// LockForUpdate row-locks the given users until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, ids ...int64) error
}

// PairingCodeRepository handles persistence of pairing codes
type PairingCodeRepository interface {
	Create(ctx context.Context, code *models.PairingCode) error
	InvalidateByOwner(ctx context.Context, ownerID int64) (int64, error)
	// LockCode blocks other transactions checking the same code value until
	// the current transaction ends.
	LockCode(ctx context.Context, code string) error
	ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error)
	GetActiveForUpdate(ctx context.Context, code string, now time.Time) (*models.PairingCode, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// CoupleRepository handles persistence of couples
type CoupleRepository interface {
	Create(ctx context.Context, couple *models.Couple) error
	GetByUserID(ctx context.Context, userID int64) (*models.Couple, error)
	// LockByID serializes writers of one couple's collections.
	LockByID(ctx context.Context, id int64) error
}

// QuickMessageRepository handles persistence of quick messages
type QuickMessageRepository interface {
	Create(ctx context.Context, msg *models.QuickMessage) error
	GetByID(ctx context.Context, id int64) (*models.QuickMessage, error)
	ListByCouple(ctx context.Context, coupleID int64) ([]*models.QuickMessage, error)
	CountByCouple(ctx context.Context, coupleID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// SlideshowImageRepository handles persistence of slideshow images
type SlideshowImageRepository interface {
	Create(ctx context.Context, image *models.SlideshowImage) error
	GetByID(ctx context.Context, id int64) (*models.SlideshowImage, error)
	ListByCouple(ctx context.Context, coupleID int64) ([]*models.SlideshowImage, error)
	CountByCouple(ctx context.Context, coupleID int64) (int, error)
	// MaxOrderIndex returns -1 when the couple has no images.
	MaxOrderIndex(ctx context.Context, coupleID int64) (int, error)
	UpdateOrderIndex(ctx context.Context, id int64, orderIndex int) error
	Delete(ctx context.Context, id int64) error
}

// Store groups the repositories and demarcates transactions
type Store interface {
	Users() UserRepository
	PairingCodes() PairingCodeRepository
	Couples() CoupleRepository
	QuickMessages() QuickMessageRepository
	SlideshowImages() SlideshowImageRepository

	// InTx runs fn against a Store bound to one read-committed transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
