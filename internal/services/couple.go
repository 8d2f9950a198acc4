package services

import (
	"context"
	"errors"
	"time"

	"couples-backend/internal/repository"
)

// CoupleStatus describes whether a user is paired and with whom.
// All optional fields are nil when the user is not paired.
type CoupleStatus struct {
	IsPaired           bool       `json:"isPaired"`
	CoupleID           *int64     `json:"coupleId"`
	PartnerID          *int64     `json:"partnerId"`
	PartnerDisplayName *string    `json:"partnerDisplayName"`
	PairedAt           *time.Time `json:"pairedAt"`
}

// CoupleTimer is the time a couple has been together
type CoupleTimer struct {
	PairedAt     time.Time `json:"pairedAt"`
	TotalSeconds int64     `json:"totalSeconds"`
}

// CoupleService answers questions about a user's couple
type CoupleService struct {
	store repository.Store
	now   func() time.Time
}

// NewCoupleService creates a new couple service
func NewCoupleService(store repository.Store) *CoupleService {
	return &CoupleService{
		store: store,
		now:   time.Now,
	}
}

// GetStatus returns the caller's pairing status
func (s *CoupleService) GetStatus(ctx context.Context, userID int64) (*CoupleStatus, error) {
	couple, err := coupleOf(ctx, s.store, userID)
	if errors.Is(err, ErrNotPaired) {
		return &CoupleStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	partnerID := couple.PartnerOf(userID)
	partner, err := s.store.Users().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	pairedAt := couple.PairedAt
	return &CoupleStatus{
		IsPaired:           true,
		CoupleID:           &couple.ID,
		PartnerID:          &partnerID,
		PartnerDisplayName: &partner.DisplayName,
		PairedAt:           &pairedAt,
	}, nil
}

// GetTimer returns how long the caller's couple has existed, in whole seconds
func (s *CoupleService) GetTimer(ctx context.Context, userID int64) (*CoupleTimer, error) {
	couple, err := coupleOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	elapsed := s.now().Sub(couple.PairedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return &CoupleTimer{
		PairedAt:     couple.PairedAt,
		TotalSeconds: int64(elapsed / time.Second),
	}, nil
}
