package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"couples-backend/internal/models"
	"couples-backend/internal/repository"
	"couples-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UploadFile is an image received from a client
type UploadFile struct {
	Body         io.Reader
	Size         int64
	OriginalName string
	ContentType  string
}

// SlideshowService manages a couple's ordered image gallery
type SlideshowService struct {
	store     repository.Store
	images    storage.ImageStore
	maxImages int
	now       func() time.Time
}

// NewSlideshowService creates a new slideshow service
func NewSlideshowService(store repository.Store, images storage.ImageStore, maxImages int) *SlideshowService {
	return &SlideshowService{
		store:     store,
		images:    images,
		maxImages: maxImages,
		now:       time.Now,
	}
}

// Upload stores the file and appends it to the end of the caller's slideshow
func (s *SlideshowService) Upload(ctx context.Context, userID int64, file UploadFile) (*models.SlideshowImage, error) {
	var (
		image     *models.SlideshowImage
		storedURL string
	)

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		couple, err := coupleOf(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Couples().LockByID(ctx, couple.ID); err != nil {
			return err
		}

		count, err := tx.SlideshowImages().CountByCouple(ctx, couple.ID)
		if err != nil {
			return err
		}
		if count >= s.maxImages {
			return fmt.Errorf("%w: at most %d slideshow images", ErrLimitReached, s.maxImages)
		}

		name := uuid.New().String() + filepath.Ext(filepath.Base(file.OriginalName))
		storedURL, err = s.images.Save(ctx, name, file.Body, file.Size, file.ContentType)
		if err != nil {
			return fmt.Errorf("failed to store image: %w", err)
		}

		maxIndex, err := tx.SlideshowImages().MaxOrderIndex(ctx, couple.ID)
		if err != nil {
			return err
		}

		image = models.NewSlideshowImage(couple.ID, userID, storedURL, maxIndex+1, s.now())
		return tx.SlideshowImages().Create(ctx, image)
	})
	if err != nil {
		if storedURL != "" {
			s.removeFile(ctx, storedURL)
		}
		return nil, err
	}
	return image, nil
}

// List returns the caller's slideshow in display order
func (s *SlideshowService) List(ctx context.Context, userID int64) ([]*models.SlideshowImage, error) {
	couple, err := coupleOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return s.store.SlideshowImages().ListByCouple(ctx, couple.ID)
}

// Reorder assigns each image its position in imageIDs, which must be a
// permutation of all the couple's image ids.
func (s *SlideshowService) Reorder(ctx context.Context, userID int64, imageIDs []int64) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		couple, err := coupleOf(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Couples().LockByID(ctx, couple.ID); err != nil {
			return err
		}

		images, err := tx.SlideshowImages().ListByCouple(ctx, couple.ID)
		if err != nil {
			return err
		}
		if !isPermutation(images, imageIDs) {
			return ErrInvalidImageSet
		}

		current := make(map[int64]int, len(images))
		for _, img := range images {
			current[img.ID] = img.OrderIndex
		}
		for i, id := range imageIDs {
			if current[id] == i {
				continue
			}
			if err := tx.SlideshowImages().UpdateOrderIndex(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes an image and closes the gap it leaves in the order
func (s *SlideshowService) Delete(ctx context.Context, userID, imageID int64) error {
	var removed *models.SlideshowImage

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		couple, err := coupleOf(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Couples().LockByID(ctx, couple.ID); err != nil {
			return err
		}

		image, err := tx.SlideshowImages().GetByID(ctx, imageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("slideshow image %d: %w", imageID, ErrNotFound)
			}
			return err
		}
		if image.CoupleID != couple.ID {
			return ErrForbiddenCrossCouple
		}

		if err := tx.SlideshowImages().Delete(ctx, imageID); err != nil {
			return err
		}
		if err := compact(ctx, tx, couple.ID); err != nil {
			return err
		}

		removed = image
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFile(ctx, removed.ImageURL)
	return nil
}

// compact renumbers a couple's images to 0..N-1 keeping their relative order
func compact(ctx context.Context, tx repository.Store, coupleID int64) error {
	remaining, err := tx.SlideshowImages().ListByCouple(ctx, coupleID)
	if err != nil {
		return err
	}
	for i, img := range remaining {
		if img.OrderIndex == i {
			continue
		}
		if err := tx.SlideshowImages().UpdateOrderIndex(ctx, img.ID, i); err != nil {
			return err
		}
	}
	return nil
}

// removeFile deletes a stored file; failures are logged and otherwise ignored
func (s *SlideshowService) removeFile(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		log.Warn().Err(err).Str("image_url", url).Msg("Failed to delete image file")
	}
}

func isPermutation(images []*models.SlideshowImage, ids []int64) bool {
	if len(ids) != len(images) {
		return false
	}

	pending := make(map[int64]bool, len(images))
	for _, img := range images {
		pending[img.ID] = true
	}
	for _, id := range ids {
		if !pending[id] {
			return false
		}
		delete(pending, id)
	}
	return true
}
