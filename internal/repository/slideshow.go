package repository

import (
	"context"
	"fmt"

	"couples-backend/internal/models"
)

type pgSlideshowImageRepository struct {
	db DBTX
}

// NewPGSlideshowImageRepository creates a slideshow image repository over db
func NewPGSlideshowImageRepository(db DBTX) SlideshowImageRepository {
	return &pgSlideshowImageRepository{db: db}
}

// Create inserts an image and sets its ID
func (r *pgSlideshowImageRepository) Create(ctx context.Context, image *models.SlideshowImage) error {
	query := `
		INSERT INTO slideshow_images (couple_id, image_url, order_index, uploaded_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		image.CoupleID, image.ImageURL, image.OrderIndex, image.UploadedByUserID, image.CreatedAt,
	).Scan(&image.ID)
	if err != nil {
		return fmt.Errorf("failed to create slideshow image: %w", err)
	}
	return nil
}

// GetByID retrieves an image by ID
func (r *pgSlideshowImageRepository) GetByID(ctx context.Context, id int64) (*models.SlideshowImage, error) {
	query := `
		SELECT id, couple_id, image_url, order_index, uploaded_by_user_id, created_at
		FROM slideshow_images
		WHERE id = $1
	`
	var image models.SlideshowImage
	err := r.db.QueryRow(ctx, query, id).Scan(
		&image.ID, &image.CoupleID, &image.ImageURL, &image.OrderIndex,
		&image.UploadedByUserID, &image.CreatedAt,
	)
	if err != nil {
		return nil, notFound("slideshow image", err)
	}
	return &image, nil
}

// ListByCouple retrieves a couple's images in slideshow order
func (r *pgSlideshowImageRepository) ListByCouple(ctx context.Context, coupleID int64) ([]*models.SlideshowImage, error) {
	query := `
		SELECT id, couple_id, image_url, order_index, uploaded_by_user_id, created_at
		FROM slideshow_images
		WHERE couple_id = $1
		ORDER BY order_index ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slideshow images: %w", err)
	}
	defer rows.Close()

	images := []*models.SlideshowImage{}
	for rows.Next() {
		var image models.SlideshowImage
		err := rows.Scan(
			&image.ID, &image.CoupleID, &image.ImageURL, &image.OrderIndex,
			&image.UploadedByUserID, &image.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slideshow image: %w", err)
		}
		images = append(images, &image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slideshow images: %w", err)
	}
	return images, nil
}

// CountByCouple counts a couple's images
func (r *pgSlideshowImageRepository) CountByCouple(ctx context.Context, coupleID int64) (int, error) {
	query := `SELECT COUNT(*) FROM slideshow_images WHERE couple_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, query, coupleID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count slideshow images: %w", err)
	}
	return total, nil
}

// MaxOrderIndex returns the highest order index of a couple's images
func (r *pgSlideshowImageRepository) MaxOrderIndex(ctx context.Context, coupleID int64) (int, error) {
	query := `SELECT COALESCE(MAX(order_index), -1) FROM slideshow_images WHERE couple_id = $1`
	var maxIndex int
	if err := r.db.QueryRow(ctx, query, coupleID).Scan(&maxIndex); err != nil {
		return 0, fmt.Errorf("failed to get max order index: %w", err)
	}
	return maxIndex, nil
}

// UpdateOrderIndex moves an image to a new position
func (r *pgSlideshowImageRepository) UpdateOrderIndex(ctx context.Context, id int64, orderIndex int) error {
	query := `UPDATE slideshow_images SET order_index = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, orderIndex, id)
	if err != nil {
		return fmt.Errorf("failed to update order index: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slideshow image not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes an image by ID
func (r *pgSlideshowImageRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM slideshow_images WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete slideshow image: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slideshow image not found: %w", ErrNotFound)
	}
	return nil
}
