package repository

import (
	"context"
	"log/slog"
	"strings"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for blog post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	GetByURLHandle(ctx context.Context, handle string) (*models.BlogPost, error)
	List(ctx context.Context, q listing.Query) ([]models.BlogPost, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
}

type postRepository struct {
	base
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{base: newBase(db, "blog_posts")}
}

// resolveCategories loads the categories named by ids. Unknown ids are skipped.
func resolveCategories(tx *gorm.DB, ids []uuid.UUID) ([]models.Category, error) {
	categories := []models.Category{}
	if len(ids) == 0 {
		return categories, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) (err error) {
	ctx, end := r.begin(ctx, "Create")
	defer func() { end(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, err := resolveCategories(tx, categoryIDs)
		if err != nil {
			return err
		}
		post.Categories = categories
		return tx.Omit("Categories.*").Create(post).Error
	})
	if err != nil {
		return translate(err, "BlogPost", post.ID)
	}
	r.log.Event(ctx, "create", slog.String("post_id", post.ID.String()), slog.Int("categories", len(post.Categories)))
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.BlogPost, err error) {
	ctx, end := r.begin(ctx, "GetByID")
	defer func() { end(err) }()

	var post models.BlogPost
	if err = r.db.WithContext(ctx).Preload("Categories").First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "BlogPost", id)
	}
	return &post, nil
}

// GetByURLHandle matches the handle case-insensitively.
func (r *postRepository) GetByURLHandle(ctx context.Context, handle string) (_ *models.BlogPost, err error) {
	ctx, end := r.begin(ctx, "GetByURLHandle")
	defer func() { end(err) }()

	var post models.BlogPost
	if err = r.db.WithContext(ctx).Preload("Categories").
		Where("LOWER(url_handle) = ?", strings.ToLower(handle)).
		First(&post).Error; err != nil {
		return nil, translate(err, "BlogPost", handle)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, q listing.Query) (_ []models.BlogPost, err error) {
	ctx, end := r.begin(ctx, "List")
	defer func() { end(err) }()

	posts := []models.BlogPost{}
	if err = r.db.WithContext(ctx).Preload("Categories").Scopes(PostCollection.Scope(q)).Find(&posts).Error; err != nil {
		return nil, translate(err, "BlogPost", "")
	}
	r.log.Event(ctx, "read", slog.Int("count", len(posts)))
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context) (_ int64, err error) {
	ctx, end := r.begin(ctx, "Count")
	defer func() { end(err) }()

	var n int64
	if err = r.db.WithContext(ctx).Model(&models.BlogPost{}).Count(&n).Error; err != nil {
		return 0, translate(err, "BlogPost", "")
	}
	return n, nil
}

// Update replaces every field of post, categories included. Last write wins.
func (r *postRepository) Update(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) (err error) {
	ctx, end := r.begin(ctx, "Update")
	defer func() { end(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.BlogPost
		if err := tx.Select("id").First(&existing, "id = ?", post.ID).Error; err != nil {
			return err
		}
		categories, err := resolveCategories(tx, categoryIDs)
		if err != nil {
			return err
		}

		post.Categories = nil
		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			return err
		}
		assoc := tx.Model(post).Association("Categories")
		if len(categories) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(categories)
		}
		post.Categories = categories
		return err
	})
	if err != nil {
		return translate(err, "BlogPost", post.ID)
	}
	r.log.Event(ctx, "update", slog.String("post_id", post.ID.String()))
	return nil
}

// Delete removes the post with its category links and returns what was removed.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) (_ *models.BlogPost, err error) {
	ctx, end := r.begin(ctx, "Delete")
	defer func() { end(err) }()

	var post models.BlogPost
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Categories").First(&post, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Select("Categories").Delete(&post).Error
	})
	if err != nil {
		return nil, translate(err, "BlogPost", id)
	}
	r.log.Event(ctx, "delete", slog.String("post_id", id.String()))
	return &post, nil
}
