package repository

import (
	"context"
	"log/slog"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageRepository defines storage operations for uploaded image metadata.
type ImageRepository interface {
	Create(ctx context.Context, image *models.BlogImage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BlogImage, error)
	List(ctx context.Context, q listing.Query) ([]models.BlogImage, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.BlogImage, error)
}

type imageRepository struct {
	base
}

// NewImageRepository returns a repository implementation for image metadata.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{base: newBase(db, "blog_images")}
}

func (r *imageRepository) Create(ctx context.Context, image *models.BlogImage) (err error) {
	ctx, end := r.begin(ctx, "Create")
	defer func() { end(err) }()

	if err = r.db.WithContext(ctx).Create(image).Error; err != nil {
		return translate(err, "BlogImage", image.ID)
	}
	r.log.Event(ctx, "create", slog.String("image_id", image.ID.String()), slog.String("file", image.StoredName()))
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.BlogImage, err error) {
	ctx, end := r.begin(ctx, "GetByID")
	defer func() { end(err) }()

	var image models.BlogImage
	if err = r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, translate(err, "BlogImage", id)
	}
	return &image, nil
}

func (r *imageRepository) List(ctx context.Context, q listing.Query) (_ []models.BlogImage, err error) {
	ctx, end := r.begin(ctx, "List")
	defer func() { end(err) }()

	images := []models.BlogImage{}
	if err = r.db.WithContext(ctx).Scopes(ImageCollection.Scope(q)).Find(&images).Error; err != nil {
		return nil, translate(err, "BlogImage", "")
	}
	r.log.Event(ctx, "read", slog.Int("count", len(images)))
	return images, nil
}

func (r *imageRepository) Count(ctx context.Context) (_ int64, err error) {
	ctx, end := r.begin(ctx, "Count")
	defer func() { end(err) }()

	var n int64
	if err = r.db.WithContext(ctx).Model(&models.BlogImage{}).Count(&n).Error; err != nil {
		return 0, translate(err, "BlogImage", "")
	}
	return n, nil
}

func (r *imageRepository) Delete(ctx context.Context, id uuid.UUID) (_ *models.BlogImage, err error) {
	ctx, end := r.begin(ctx, "Delete")
	defer func() { end(err) }()

	var image models.BlogImage
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&image, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&image).Error
	})
	if err != nil {
		return nil, translate(err, "BlogImage", id)
	}
	r.log.Event(ctx, "delete", slog.String("image_id", id.String()))
	return &image, nil
}
