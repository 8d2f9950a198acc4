package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"couples-backend/internal/models"
	"couples-backend/internal/repository"
)

// MaxQuickMessageLength is the longest quick message content, in characters
const MaxQuickMessageLength = 50

// QuickMessageService manages a couple's preset messages
type QuickMessageService struct {
	store       repository.Store
	maxMessages int
	now         func() time.Time
}

// NewQuickMessageService creates a new quick message service
func NewQuickMessageService(store repository.Store, maxMessages int) *QuickMessageService {
	return &QuickMessageService{
		store:       store,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// Create adds a message to the caller's couple unless the couple is at its limit
func (s *QuickMessageService) Create(ctx context.Context, userID int64, content string) (*models.QuickMessage, error) {
	if strings.TrimSpace(content) == "" || utf8.RuneCountInString(content) > MaxQuickMessageLength {
		return nil, fmt.Errorf("%w: content must be 1 to %d characters", ErrValidation, MaxQuickMessageLength)
	}

	var msg *models.QuickMessage
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		couple, err := coupleOf(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Couples().LockByID(ctx, couple.ID); err != nil {
			return err
		}

		count, err := tx.QuickMessages().CountByCouple(ctx, couple.ID)
		if err != nil {
			return err
		}
		if count >= s.maxMessages {
			return fmt.Errorf("%w: at most %d quick messages", ErrLimitReached, s.maxMessages)
		}

		msg = models.NewQuickMessage(couple.ID, userID, content, s.now())
		return tx.QuickMessages().Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns the caller's couple messages, oldest first
func (s *QuickMessageService) List(ctx context.Context, userID int64) ([]*models.QuickMessage, error) {
	couple, err := coupleOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return s.store.QuickMessages().ListByCouple(ctx, couple.ID)
}

// Delete removes one of the caller's couple messages
func (s *QuickMessageService) Delete(ctx context.Context, userID, messageID int64) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		couple, err := coupleOf(ctx, tx, userID)
		if err != nil {
			return err
		}

		msg, err := tx.QuickMessages().GetByID(ctx, messageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("quick message %d: %w", messageID, ErrNotFound)
			}
			return err
		}
		if msg.CoupleID != couple.ID {
			return ErrForbiddenCrossCouple
		}

		return tx.QuickMessages().Delete(ctx, messageID)
	})
}
