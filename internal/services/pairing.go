package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"couples-backend/internal/metrics"
	"couples-backend/internal/models"
	"couples-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const maxCodeAttempts = 10

// PairingCodeResponse is returned when a user generates a code
type PairingCodeResponse struct {
	Code             string `json:"code"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// PairingService issues and confirms pairing codes
type PairingService struct {
	store   repository.Store
	codeTTL time.Duration
	newCode func() (string, error)
	now     func() time.Time
}

// NewPairingService creates a new pairing service
func NewPairingService(store repository.Store, codeTTL time.Duration) *PairingService {
	return &PairingService{
		store:   store,
		codeTTL: codeTTL,
		newCode: func() (string, error) { return GenerateCode(rand.Reader) },
		now:     time.Now,
	}
}

// GenerateCode invalidates the caller's previous codes and issues a new one
// that no other live code shares.
func (s *PairingService) GenerateCode(ctx context.Context, userID int64) (*PairingCodeResponse, error) {
	var issued *models.PairingCode

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := ensureUnpaired(ctx, tx, userID, ErrAlreadyPaired); err != nil {
			return err
		}

		if _, err := tx.PairingCodes().InvalidateByOwner(ctx, userID); err != nil {
			return err
		}

		now := s.now()
		code, err := s.uniqueCode(ctx, tx, now)
		if err != nil {
			return err
		}

		issued = models.NewPairingCode(code, userID, now, s.codeTTL)
		return tx.PairingCodes().Create(ctx, issued)
	})
	if err != nil {
		return nil, err
	}

	return &PairingCodeResponse{
		Code:             issued.Code,
		ExpiresInSeconds: int64(s.codeTTL / time.Second),
	}, nil
}

func (s *PairingService) uniqueCode(ctx context.Context, tx repository.Store, now time.Time) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		// held until commit, so a concurrent generator drawing the same value
		// sees this code once it is inserted
		if err := tx.PairingCodes().LockCode(ctx, code); err != nil {
			return "", err
		}
		exists, err := tx.PairingCodes().ActiveCodeExists(ctx, code, now)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxCodeAttempts)
}

// ConfirmPairing consumes code and pairs the caller with the code's owner.
// Consuming the code and creating the couple commit together or not at all.
func (s *PairingService) ConfirmPairing(ctx context.Context, code string, userID int64) (*models.Couple, error) {
	var couple *models.Couple

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := ensureUnpaired(ctx, tx, userID, ErrAlreadyPaired); err != nil {
			return err
		}

		now := s.now()
		pc, err := tx.PairingCodes().GetActiveForUpdate(ctx, code, now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidOrExpiredCode
			}
			return err
		}

		if pc.OwnerUserID == userID {
			return ErrSelfPairing
		}

		if err := tx.Users().LockForUpdate(ctx, pc.OwnerUserID, userID); err != nil {
			return err
		}
		if err := ensureUnpaired(ctx, tx, userID, ErrAlreadyPaired); err != nil {
			return err
		}
		if err := ensureUnpaired(ctx, tx, pc.OwnerUserID, ErrOwnerAlreadyPaired); err != nil {
			return err
		}

		if err := tx.PairingCodes().MarkUsed(ctx, pc.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidOrExpiredCode
			}
			return err
		}

		couple = models.NewCouple(pc.OwnerUserID, userID, now)
		if err := tx.Couples().Create(ctx, couple); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrOwnerAlreadyPaired
			}
			return err
		}
		return nil
	})
	if err != nil {
		metrics.PairingsTotal.WithLabelValues(pairingResult(err)).Inc()
		return nil, err
	}

	metrics.PairingsTotal.WithLabelValues("paired").Inc()
	return couple, nil
}

// PurgeStaleCodes deletes used and expired pairing codes
func (s *PairingService) PurgeStaleCodes(ctx context.Context) (int64, error) {
	n, err := s.store.PairingCodes().DeleteStale(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.PairingCodesPurged.Add(float64(n))
	return n, nil
}

// RunPurger purges stale codes every interval until ctx is done
func (s *PairingService) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeStaleCodes(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to purge pairing codes")
				continue
			}
			if n > 0 {
				log.Info().Int64("purged", n).Msg("Purged stale pairing codes")
			}
		}
	}
}

// ensureUnpaired returns ifPaired when userID already belongs to a couple
func ensureUnpaired(ctx context.Context, store repository.Store, userID int64, ifPaired error) error {
	_, err := store.Couples().GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return ifPaired
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

// coupleOf resolves the caller's couple, or ErrNotPaired
func coupleOf(ctx context.Context, store repository.Store, userID int64) (*models.Couple, error) {
	couple, err := store.Couples().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotPaired
		}
		return nil, err
	}
	return couple, nil
}

func pairingResult(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyPaired):
		return "already_paired"
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, ErrSelfPairing):
		return "self_pairing"
	case errors.Is(err, ErrOwnerAlreadyPaired):
		return "owner_paired"
	default:
		return "error"
	}
}
