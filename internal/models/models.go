package models

import "time"

// User represents a registered account
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"displayName"`
	DateOfBirth  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PairingCode is a one-time 6-digit code issued by a user who wants to pair
type PairingCode struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	OwnerUserID int64     `json:"ownerUserId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Used        bool      `json:"used"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewPairingCode creates an unused code owned by ownerID that expires ttl after now
func NewPairingCode(code string, ownerID int64, now time.Time, ttl time.Duration) *PairingCode {
	return &PairingCode{
		Code:        code,
		OwnerUserID: ownerID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
}

// IsActive reports whether the code can still be confirmed at now.
// A code whose expiry equals now is already expired.
func (p *PairingCode) IsActive(now time.Time) bool {
	return !p.Used && p.ExpiresAt.After(now)
}

// Couple represents two paired users
type Couple struct {
	ID       int64     `json:"id"`
	User1ID  int64     `json:"user1Id"`
	User2ID  int64     `json:"user2Id"`
	PairedAt time.Time `json:"pairedAt"`
}

// NewCouple creates a couple where user1 owned the pairing code and user2 confirmed it
func NewCouple(user1ID, user2ID int64, now time.Time) *Couple {
	return &Couple{
		User1ID:  user1ID,
		User2ID:  user2ID,
		PairedAt: now,
	}
}

// PartnerOf returns the other member of the couple
func (c *Couple) PartnerOf(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasMember reports whether userID is one of the two members
func (c *Couple) HasMember(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// QuickMessage is a short preset message shared by a couple
type QuickMessage struct {
	ID              int64     `json:"id"`
	CoupleID        int64     `json:"-"`
	Content         string    `json:"content"`
	CreatedByUserID int64     `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewQuickMessage creates a message for a couple
func NewQuickMessage(coupleID, userID int64, content string, now time.Time) *QuickMessage {
	return &QuickMessage{
		CoupleID:        coupleID,
		Content:         content,
		CreatedByUserID: userID,
		CreatedAt:       now,
	}
}

// SlideshowImage is one image of a couple's slideshow
type SlideshowImage struct {
	ID               int64     `json:"id"`
	CoupleID         int64     `json:"-"`
	ImageURL         string    `json:"imageUrl"`
	OrderIndex       int       `json:"orderIndex"`
	UploadedByUserID int64     `json:"uploadedByUserId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewSlideshowImage creates an image placed at orderIndex
func NewSlideshowImage(coupleID, userID int64, imageURL string, orderIndex int, now time.Time) *SlideshowImage {
	return &SlideshowImage{
		CoupleID:         coupleID,
		ImageURL:         imageURL,
		OrderIndex:       orderIndex,
		UploadedByUserID: userID,
		CreatedAt:        now,
	}
}
