package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"couples-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPGUser_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "hash", "Alice", pgxmock.AnyArg(), testTime).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user := &models.User{Username: "alice", PasswordHash: "hash", DisplayName: "Alice", CreatedAt: testTime}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUser_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "hash", "Alice", pgxmock.AnyArg(), testTime).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	user := &models.User{Username: "alice", PasswordHash: "hash", DisplayName: "Alice", CreatedAt: testTime}
	err := repo.Create(context.Background(), user)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUser_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	dob := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "display_name", "date_of_birth", "created_at"}).
			AddRow(int64(7), "alice", "hash", "Alice", &dob, testTime))

	user, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	require.NotNil(t, user.DateOfBirth)
	assert.Equal(t, dob, *user.DateOfBirth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUser_GetByUsernameNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUser_UpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET display_name = $1, password_hash = $2 WHERE id = $3")).
		WithArgs("Ally", "hash", int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &models.User{ID: 9, DisplayName: "Ally", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUser_LockForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE")).
		WithArgs([]int64{3, 8}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(8)))
	require.NoError(t, repo.LockForUpdate(context.Background(), 8, 3))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE")).
		WithArgs([]int64{3, 8}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	assert.ErrorIs(t, repo.LockForUpdate(context.Background(), 3, 8), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGPairingCode_GetActiveForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGPairingCodeRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1 AND used = FALSE AND expires_at > $2")).
		WithArgs("123456", testTime).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "owner_user_id", "expires_at", "used", "created_at"}).
			AddRow(int64(1), "123456", int64(7), testTime.Add(10*time.Minute), false, testTime))

	pc, err := repo.GetActiveForUpdate(context.Background(), "123456", testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pc.OwnerUserID)
	assert.False(t, pc.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGPairingCode_ActiveCodeExists(t *testing.T) {
	mock := newMock(t)
	repo := NewPGPairingCodeRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("123456", testTime).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ActiveCodeExists(context.Background(), "123456", testTime)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGPairingCode_LockCode(t *testing.T) {
	mock := newMock(t)
	repo := NewPGPairingCodeRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1, hashtext($2))")).
		WithArgs(pairingCodeLockClass, "123456").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.LockCode(context.Background(), "123456"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGPairingCode_MarkUsedTwice(t *testing.T) {
	mock := newMock(t)
	repo := NewPGPairingCodeRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pairing_codes SET used = TRUE WHERE id = $1 AND used = FALSE")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pairing_codes SET used = TRUE WHERE id = $1 AND used = FALSE")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkUsed(context.Background(), 1))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), 1), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGPairingCode_InvalidateAndPurge(t *testing.T) {
	mock := newMock(t)
	repo := NewPGPairingCodeRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pairing_codes SET used = TRUE WHERE owner_user_id = $1 AND used = FALSE")).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM pairing_codes WHERE used = TRUE OR expires_at < $1")).
		WithArgs(testTime).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := repo.InvalidateByOwner(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteStale(context.Background(), testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCouple_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGCoupleRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO couples")).
		WithArgs(int64(1), int64(2), testTime).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := repo.Create(context.Background(), models.NewCouple(1, 2, testTime))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCouple_GetByUserID(t *testing.T) {
	mock := newMock(t)
	repo := NewPGCoupleRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user1_id = $1 OR user2_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user1_id", "user2_id", "paired_at"}).
			AddRow(int64(10), int64(1), int64(2), testTime))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user1_id = $1 OR user2_id = $1")).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	couple, err := repo.GetByUserID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), couple.PartnerOf(2))

	_, err = repo.GetByUserID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGQuickMessage_ListAndCount(t *testing.T) {
	mock := newMock(t)
	repo := NewPGQuickMessageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "couple_id", "content", "created_by_user_id", "created_at"}).
			AddRow(int64(1), int64(10), "Miss you", int64(1), testTime).
			AddRow(int64(2), int64(10), "On my way", int64(2), testTime.Add(time.Minute)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM quick_messages WHERE couple_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	msgs, err := repo.ListByCouple(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "On my way", msgs[1].Content)

	n, err := repo.CountByCouple(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGQuickMessage_ListEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewPGQuickMessageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM quick_messages")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "couple_id", "content", "created_by_user_id", "created_at"}))

	msgs, err := repo.ListByCouple(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestPGSlideshow_MaxOrderIndexAndMove(t *testing.T) {
	mock := newMock(t)
	repo := NewPGSlideshowImageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(order_index), -1) FROM slideshow_images WHERE couple_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(-1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slideshow_images SET order_index = $1 WHERE id = $2")).
		WithArgs(0, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slideshow_images WHERE id = $1")).
		WithArgs(int64(6)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	maxIndex, err := repo.MaxOrderIndex(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, -1, maxIndex)

	require.NoError(t, repo.UpdateOrderIndex(context.Background(), 5, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 6), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTxCommits(t *testing.T) {
	mock := newMock(t)
	store := NewPostgresStore(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM couples WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quick_messages WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx Store) error {
		if err := tx.Couples().LockByID(context.Background(), 10); err != nil {
			return err
		}
		return tx.QuickMessages().Delete(context.Background(), 3)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTxRollsBack(t *testing.T) {
	mock := newMock(t)
	store := NewPostgresStore(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	sentinel := errors.New("limit reached")
	err := store.InTx(context.Background(), func(tx Store) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_NestedInTxReusesTransaction(t *testing.T) {
	mock := newMock(t)
	store := NewPostgresStore(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx Store) error {
		return tx.InTx(context.Background(), func(inner Store) error {
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
