package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, roles ...string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUserName(ctx context.Context, userName string) (bool, error)
	List(ctx context.Context, q listing.Query) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userRepository struct {
	base
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{base: newBase(db, "users")}
}

// Create stores user with the named roles. Every role must exist.
func (r *userRepository) Create(ctx context.Context, user *models.User, roles ...string) (err error) {
	ctx, end := r.begin(ctx, "Create")
	defer func() { end(err) }()

	if len(roles) > 0 {
		var found []models.Role
		if err = r.db.WithContext(ctx).Where("name IN ?", roles).Find(&found).Error; err != nil {
			return translate(err, "Role", strings.Join(roles, ","))
		}
		if len(found) != len(roles) {
			return models.NewInternalError(fmt.Errorf("roles %v are not seeded", roles))
		}
		user.Roles = found
	}

	if err = r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error; err != nil {
		return translate(err, "User", user.UserName)
	}
	r.log.Event(ctx, "create", slog.String("user_id", user.ID.String()))
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.User, err error) {
	ctx, end := r.begin(ctx, "GetByID")
	defer func() { end(err) }()

	var user models.User
	if err = r.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User", id)
	}
	return &user, nil
}

// GetByEmail matches email case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, end := r.begin(ctx, "GetByEmail")
	defer func() { end(err) }()

	var user models.User
	if err = r.db.WithContext(ctx).Preload("Roles").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return nil, translate(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "ExistsByEmail", "email", email)
}

func (r *userRepository) ExistsByUserName(ctx context.Context, userName string) (bool, error) {
	return r.exists(ctx, "ExistsByUserName", "user_name", userName)
}

func (r *userRepository) exists(ctx context.Context, method, column, value string) (_ bool, err error) {
	ctx, end := r.begin(ctx, method)
	defer func() { end(err) }()

	var n int64
	err = r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER("+column+") = ?", strings.ToLower(strings.TrimSpace(value))).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "User", value)
	}
	return n > 0, nil
}

// List returns one page of accounts. The seeded admin is never listed.
func (r *userRepository) List(ctx context.Context, q listing.Query) (_ []models.User, err error) {
	ctx, end := r.begin(ctx, "List")
	defer func() { end(err) }()

	users := []models.User{}
	err = r.db.WithContext(ctx).Preload("Roles").
		Where("user_name <> ?", models.AdminUserName).
		Scopes(UserCollection.Scope(q)).
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "User", "")
	}
	r.log.Event(ctx, "read", slog.Int("count", len(users)))
	return users, nil
}

// Count returns the number of stored accounts, admin included.
func (r *userRepository) Count(ctx context.Context) (_ int64, err error) {
	ctx, end := r.begin(ctx, "Count")
	defer func() { end(err) }()

	var n int64
	if err = r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, translate(err, "User", "")
	}
	return n, nil
}

// Delete removes the account and its role memberships.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) (_ *models.User, err error) {
	ctx, end := r.begin(ctx, "Delete")
	defer func() { end(err) }()

	var user models.User
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Select("Roles").Delete(&user).Error
	})
	if err != nil {
		return nil, translate(err, "User", id)
	}
	r.log.Event(ctx, "delete", slog.String("user_id", id.String()))
	return &user, nil
}

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	Ensure(ctx context.Context, roles ...models.Role) error
	List(ctx context.Context) ([]models.Role, error)
}

type roleRepository struct {
	base
}

// NewRoleRepository returns a new RoleRepository implementation.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{base: newBase(db, "roles")}
}

// Ensure inserts roles that are not stored yet and leaves existing rows untouched.
func (r *roleRepository) Ensure(ctx context.Context, roles ...models.Role) (err error) {
	ctx, end := r.begin(ctx, "Ensure")
	defer func() { end(err) }()

	if len(roles) == 0 {
		return nil
	}
	if err = r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return translate(err, "Role", "")
	}
	return nil
}

func (r *roleRepository) List(ctx context.Context) (_ []models.Role, err error) {
	ctx, end := r.begin(ctx, "List")
	defer func() { end(err) }()

	roles := []models.Role{}
	if err = r.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, translate(err, "Role", "")
	}
	return roles, nil
}
