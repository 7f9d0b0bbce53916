// Package seed creates the built-in roles and system account, and optional
// demo content for development databases.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BuiltInRoles are stored with fixed ids so tokens and joins stay stable across databases.
var BuiltInRoles = []models.Role{
	{ID: models.ReaderRoleID, Name: models.RoleReader},
	{ID: models.WriterRoleID, Name: models.RoleWriter},
}

var categoryNames = []string{
	"Technology", "Programming", "Philosophy", "Science", "Travel",
	"Books", "Music", "Art", "History", "Food", "Personal", "Career",
}

// Options controls demo content generation.
type Options struct {
	NumPosts      int
	NumCategories int
	// Seed makes generated content reproducible. Zero picks a random seed.
	Seed int64
}

// Result reports what Content created.
type Result struct {
	Categories []models.Category
	Posts      []models.BlogPost
}

// Seeder writes seed data through the repositories.
type Seeder struct {
	db         *gorm.DB
	roles      repository.RoleRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	posts      repository.PostRepository
	cost       int
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:         db,
		roles:      repository.NewRoleRepository(db),
		users:      repository.NewUserRepository(db),
		categories: repository.NewCategoryRepository(db),
		posts:      repository.NewPostRepository(db),
		cost:       bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost used for the admin password.
func (s *Seeder) WithHashCost(cost int) *Seeder {
	s.cost = cost
	return s
}

// Roles stores the Reader and Writer roles when missing.
func (s *Seeder) Roles(ctx context.Context) error {
	if err := s.roles.Ensure(ctx, BuiltInRoles...); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}

// Admin creates the system account holding both roles. An existing account
// is left as it is, including its password.
func (s *Seeder) Admin(ctx context.Context, password string) (created bool, err error) {
	_, err = s.users.GetByID(ctx, models.AdminUserID)
	switch {
	case err == nil:
		return false, nil
	case !models.IsCode(err, models.CodeNotFound):
		return false, fmt.Errorf("look up admin: %w", err)
	}

	if password == "" {
		return false, errors.New("admin password is not configured")
	}
	hash, err := service.HashPassword(password, s.cost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		ID:           models.AdminUserID,
		UserName:     models.AdminUserName,
		Email:        models.AdminEmail,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, admin, models.RoleReader, models.RoleWriter); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "system account created", slog.String("user_name", admin.UserName))
	return true, nil
}

// Content generates categories and posts with gofakeit. Each post links to
// up to three of the generated categories.
func (s *Seeder) Content(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumCategories <= 0 {
		opts.NumCategories = 6
	}
	opts.NumCategories = min(opts.NumCategories, len(categoryNames))

	faker := gofakeit.New(opts.Seed)
	res := &Result{}

	names := append([]string(nil), categoryNames...)
	faker.ShuffleStrings(names)
	for _, name := range names[:opts.NumCategories] {
		category := &models.Category{Name: name, URLHandle: service.URLHandle("", name)}
		if err := s.categories.Create(ctx, category); err != nil {
			return res, fmt.Errorf("seed category %q: %w", name, err)
		}
		res.Categories = append(res.Categories, *category)
	}

	now := time.Now().UTC()
	for i := 0; i < opts.NumPosts; i++ {
		post := buildPost(faker, now)
		post.URLHandle = fmt.Sprintf("%s-%d", post.URLHandle, i+1)

		var ids []uuid.UUID
		for _, c := range pick(faker, res.Categories, faker.Number(0, 3)) {
			ids = append(ids, c.ID)
		}
		if err := s.posts.Create(ctx, post, ids); err != nil {
			return res, fmt.Errorf("seed post %d: %w", i+1, err)
		}
		res.Posts = append(res.Posts, *post)
	}

	middleware.Logger.InfoContext(ctx, "demo content seeded",
		slog.Int("categories", len(res.Categories)),
		slog.Int("posts", len(res.Posts)),
	)
	return res, nil
}

func buildPost(faker *gofakeit.Faker, now time.Time) *models.BlogPost {
	title := strings.TrimSuffix(faker.Sentence(faker.Number(3, 7)), ".")
	return &models.BlogPost{
		Title:            title,
		ShortDescription: faker.Sentence(15),
		Content:          faker.Paragraph(3, 4, 12, "\n\n"),
		FeaturedImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", faker.UUID()),
		URLHandle:        service.URLHandle("", title),
		PublishedDate:    faker.DateRange(now.AddDate(0, -6, 0), now),
		Author:           faker.Name(),
		IsVisible:        faker.Number(1, 10) > 2,
	}
}

func pick(faker *gofakeit.Faker, categories []models.Category, n int) []models.Category {
	if n >= len(categories) {
		return categories
	}
	idx := make([]int, len(categories))
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleInts(idx)
	out := make([]models.Category, 0, n)
	for _, i := range idx[:n] {
		out = append(out, categories[i])
	}
	return out
}

// ClearContent deletes every post, category, link row and image record.
// Accounts and roles are kept.
func (s *Seeder) ClearContent(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"blog_post_categories", "blog_posts", "categories", "blog_images"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
