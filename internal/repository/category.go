package repository

import (
	"context"
	"log/slog"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, q listing.Query) ([]models.Category, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type categoryRepository struct {
	base
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{base: newBase(db, "categories")}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) (err error) {
	ctx, end := r.begin(ctx, "Create")
	defer func() { end(err) }()

	if err = r.db.WithContext(ctx).Create(category).Error; err != nil {
		return translate(err, "Category", category.ID)
	}
	r.log.Event(ctx, "create", slog.String("category_id", category.ID.String()))
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.Category, err error) {
	ctx, end := r.begin(ctx, "GetByID")
	defer func() { end(err) }()

	var category models.Category
	if err = r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, q listing.Query) (_ []models.Category, err error) {
	ctx, end := r.begin(ctx, "List")
	defer func() { end(err) }()

	categories := []models.Category{}
	if err = r.db.WithContext(ctx).Scopes(CategoryCollection.Scope(q)).Find(&categories).Error; err != nil {
		return nil, translate(err, "Category", "")
	}
	r.log.Event(ctx, "read", slog.Int("count", len(categories)))
	return categories, nil
}

func (r *categoryRepository) Count(ctx context.Context) (_ int64, err error) {
	ctx, end := r.begin(ctx, "Count")
	defer func() { end(err) }()

	var n int64
	if err = r.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error; err != nil {
		return 0, translate(err, "Category", "")
	}
	return n, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) (err error) {
	ctx, end := r.begin(ctx, "Update")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{"name": category.Name, "url_handle": category.URLHandle})
	if err = res.Error; err != nil {
		return translate(err, "Category", category.ID)
	}
	if res.RowsAffected == 0 {
		err = models.NewNotFoundError("Category", category.ID)
		return err
	}
	r.log.Event(ctx, "update", slog.String("category_id", category.ID.String()))
	return nil
}

// Delete removes the category row only. Post links are left in place.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) (_ *models.Category, err error) {
	ctx, end := r.begin(ctx, "Delete")
	defer func() { end(err) }()

	var category models.Category
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		return nil, translate(err, "Category", id)
	}
	r.log.Event(ctx, "delete", slog.String("category_id", id.String()))
	return &category, nil
}
