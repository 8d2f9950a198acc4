package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"couples-backend/internal/models"
)

type memoryData struct {
	nextID   int64
	users    map[int64]models.User
	codes    map[int64]models.PairingCode
	couples  map[int64]models.Couple
	messages map[int64]models.QuickMessage
	images   map[int64]models.SlideshowImage
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		nextID:   d.nextID,
		users:    maps.Clone(d.users),
		codes:    maps.Clone(d.codes),
		couples:  maps.Clone(d.couples),
		messages: maps.Clone(d.messages),
		images:   maps.Clone(d.images),
	}
}

func (d *memoryData) newID() int64 {
	d.nextID++
	return d.nextID
}

type memoryState struct {
	mu   sync.Mutex
	data *memoryData
}

// MemoryStore is a Store kept in process memory. Transactions are serialized
// behind one mutex and roll back by restoring a snapshot.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			data: &memoryData{
				users:    make(map[int64]models.User),
				codes:    make(map[int64]models.PairingCode),
				couples:  make(map[int64]models.Couple),
				messages: make(map[int64]models.QuickMessage),
				images:   make(map[int64]models.SlideshowImage),
			},
		},
	}
}

func (s *MemoryStore) Users() UserRepository                     { return memoryUsers{s} }
func (s *MemoryStore) PairingCodes() PairingCodeRepository       { return memoryCodes{s} }
func (s *MemoryStore) Couples() CoupleRepository                 { return memoryCouples{s} }
func (s *MemoryStore) QuickMessages() QuickMessageRepository     { return memoryMessages{s} }
func (s *MemoryStore) SlideshowImages() SlideshowImageRepository { return memoryImages{s} }

// InTx implements Store
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snapshot := s.state.data.clone()
	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.data = snapshot
		return err
	}
	return nil
}

// view runs fn with exclusive access to the data
func (s *MemoryStore) view(fn func(d *memoryData) error) error {
	if !s.inTx {
		s.state.mu.Lock()
		defer s.state.mu.Unlock()
	}
	return fn(s.state.data)
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	return r.s.view(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == user.Username {
				return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
			}
		}
		user.ID = d.newID()
		d.users[user.ID] = *user
		return nil
	})
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	var found *models.User
	err := r.s.view(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		found = &u
		return nil
	})
	return found, err
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	var found *models.User
	err := r.s.view(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == username {
				found = &u
				return nil
			}
		}
		return fmt.Errorf("user not found: %w", ErrNotFound)
	})
	return found, err
}

func (r memoryUsers) Update(_ context.Context, user *models.User) error {
	return r.s.view(func(d *memoryData) error {
		u, ok := d.users[user.ID]
		if !ok {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		u.DisplayName = user.DisplayName
		u.PasswordHash = user.PasswordHash
		d.users[user.ID] = u
		return nil
	})
}

func (r memoryUsers) LockForUpdate(_ context.Context, ids ...int64) error {
	return r.s.view(func(d *memoryData) error {
		for _, id := range ids {
			if _, ok := d.users[id]; !ok {
				return fmt.Errorf("user not found: %w", ErrNotFound)
			}
		}
		return nil
	})
}

type memoryCodes struct{ s *MemoryStore }

func (r memoryCodes) Create(_ context.Context, code *models.PairingCode) error {
	return r.s.view(func(d *memoryData) error {
		code.ID = d.newID()
		d.codes[code.ID] = *code
		return nil
	})
}

func (r memoryCodes) InvalidateByOwner(_ context.Context, ownerID int64) (int64, error) {
	var n int64
	err := r.s.view(func(d *memoryData) error {
		for id, c := range d.codes {
			if c.OwnerUserID == ownerID && !c.Used {
				c.Used = true
				d.codes[id] = c
				n++
			}
		}
		return nil
	})
	return n, err
}

// LockCode is a no-op: memory transactions are already serialized
func (r memoryCodes) LockCode(context.Context, string) error {
	return nil
}

func (r memoryCodes) ActiveCodeExists(_ context.Context, code string, now time.Time) (bool, error) {
	var exists bool
	err := r.s.view(func(d *memoryData) error {
		for _, c := range d.codes {
			if c.Code == code && c.IsActive(now) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r memoryCodes) GetActiveForUpdate(_ context.Context, code string, now time.Time) (*models.PairingCode, error) {
	var found *models.PairingCode
	err := r.s.view(func(d *memoryData) error {
		for _, c := range d.codes {
			if c.Code == code && c.IsActive(now) && (found == nil || c.CreatedAt.After(found.CreatedAt)) {
				found = &c
			}
		}
		if found == nil {
			return fmt.Errorf("pairing code not found: %w", ErrNotFound)
		}
		return nil
	})
	return found, err
}

func (r memoryCodes) MarkUsed(_ context.Context, id int64) error {
	return r.s.view(func(d *memoryData) error {
		c, ok := d.codes[id]
		if !ok || c.Used {
			return fmt.Errorf("pairing code not found: %w", ErrNotFound)
		}
		c.Used = true
		d.codes[id] = c
		return nil
	})
}

func (r memoryCodes) DeleteStale(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.view(func(d *memoryData) error {
		for id, c := range d.codes {
			if c.Used || c.ExpiresAt.Before(now) {
				delete(d.codes, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memoryCouples struct{ s *MemoryStore }

func (r memoryCouples) Create(_ context.Context, couple *models.Couple) error {
	return r.s.view(func(d *memoryData) error {
		for _, c := range d.couples {
			if c.HasMember(couple.User1ID) || c.HasMember(couple.User2ID) {
				return fmt.Errorf("user is already in a couple: %w", ErrDuplicate)
			}
		}
		couple.ID = d.newID()
		d.couples[couple.ID] = *couple
		return nil
	})
}

func (r memoryCouples) GetByUserID(_ context.Context, userID int64) (*models.Couple, error) {
	var found *models.Couple
	err := r.s.view(func(d *memoryData) error {
		for _, c := range d.couples {
			if c.HasMember(userID) {
				found = &c
				return nil
			}
		}
		return fmt.Errorf("couple not found: %w", ErrNotFound)
	})
	return found, err
}

func (r memoryCouples) LockByID(_ context.Context, id int64) error {
	return r.s.view(func(d *memoryData) error {
		if _, ok := d.couples[id]; !ok {
			return fmt.Errorf("couple not found: %w", ErrNotFound)
		}
		return nil
	})
}

type memoryMessages struct{ s *MemoryStore }

func (r memoryMessages) Create(_ context.Context, msg *models.QuickMessage) error {
	return r.s.view(func(d *memoryData) error {
		msg.ID = d.newID()
		d.messages[msg.ID] = *msg
		return nil
	})
}

func (r memoryMessages) GetByID(_ context.Context, id int64) (*models.QuickMessage, error) {
	var found *models.QuickMessage
	err := r.s.view(func(d *memoryData) error {
		m, ok := d.messages[id]
		if !ok {
			return fmt.Errorf("quick message not found: %w", ErrNotFound)
		}
		found = &m
		return nil
	})
	return found, err
}

func (r memoryMessages) ListByCouple(_ context.Context, coupleID int64) ([]*models.QuickMessage, error) {
	messages := []*models.QuickMessage{}
	err := r.s.view(func(d *memoryData) error {
		for _, m := range d.messages {
			if m.CoupleID == coupleID {
				messages = append(messages, &m)
			}
		}
		return nil
	})
	slices.SortFunc(messages, func(a, b *models.QuickMessage) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return messages, err
}

func (r memoryMessages) CountByCouple(_ context.Context, coupleID int64) (int, error) {
	var n int
	err := r.s.view(func(d *memoryData) error {
		for _, m := range d.messages {
			if m.CoupleID == coupleID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memoryMessages) Delete(_ context.Context, id int64) error {
	return r.s.view(func(d *memoryData) error {
		if _, ok := d.messages[id]; !ok {
			return fmt.Errorf("quick message not found: %w", ErrNotFound)
		}
		delete(d.messages, id)
		return nil
	})
}

type memoryImages struct{ s *MemoryStore }

func (r memoryImages) Create(_ context.Context, image *models.SlideshowImage) error {
	return r.s.view(func(d *memoryData) error {
		image.ID = d.newID()
		d.images[image.ID] = *image
		return nil
	})
}

func (r memoryImages) GetByID(_ context.Context, id int64) (*models.SlideshowImage, error) {
	var found *models.SlideshowImage
	err := r.s.view(func(d *memoryData) error {
		img, ok := d.images[id]
		if !ok {
			return fmt.Errorf("slideshow image not found: %w", ErrNotFound)
		}
		found = &img
		return nil
	})
	return found, err
}

func (r memoryImages) ListByCouple(_ context.Context, coupleID int64) ([]*models.SlideshowImage, error) {
	images := []*models.SlideshowImage{}
	err := r.s.view(func(d *memoryData) error {
		for _, img := range d.images {
			if img.CoupleID == coupleID {
				images = append(images, &img)
			}
		}
		return nil
	})
	slices.SortFunc(images, func(a, b *models.SlideshowImage) int {
		if a.OrderIndex != b.OrderIndex {
			return cmp.Compare(a.OrderIndex, b.OrderIndex)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return images, err
}

func (r memoryImages) CountByCouple(ctx context.Context, coupleID int64) (int, error) {
	images, err := r.ListByCouple(ctx, coupleID)
	return len(images), err
}

func (r memoryImages) MaxOrderIndex(_ context.Context, coupleID int64) (int, error) {
	maxIndex := -1
	err := r.s.view(func(d *memoryData) error {
		for _, img := range d.images {
			if img.CoupleID == coupleID && img.OrderIndex > maxIndex {
				maxIndex = img.OrderIndex
			}
		}
		return nil
	})
	return maxIndex, err
}

func (r memoryImages) UpdateOrderIndex(_ context.Context, id int64, orderIndex int) error {
	return r.s.view(func(d *memoryData) error {
		img, ok := d.images[id]
		if !ok {
			return fmt.Errorf("slideshow image not found: %w", ErrNotFound)
		}
		img.OrderIndex = orderIndex
		d.images[id] = img
		return nil
	})
}

func (r memoryImages) Delete(_ context.Context, id int64) error {
	return r.s.view(func(d *memoryData) error {
		if _, ok := d.images[id]; !ok {
			return fmt.Errorf("slideshow image not found: %w", ErrNotFound)
		}
		delete(d.images, id)
		return nil
	})
}
