// Package models contains data structures for the blog's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role names. Writer grants authoring access; Reader is assigned on registration.
const (
	RoleReader = "Reader"
	RoleWriter = "Writer"
)

// Seeded identifiers for the built-in roles and the system admin account.
var (
	ReaderRoleID = uuid.MustParse("0839b6ac-c835-4402-b477-dff84f98f9d1")
	WriterRoleID = uuid.MustParse("775bed88-eb72-4a1f-93ee-bdf869707bdc")
	AdminUserID  = uuid.MustParse("6542a5f0-8e4f-44df-a7e8-afbee3ad97cf")
)

// AdminUserName is the user name of the seeded system account. It is hidden
// from user listings and subtracted from the public user count.
const (
	AdminUserName = "Admin"
	AdminEmail    = "admin@test.com"
)

// Role is a named authorization tier.
type Role struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null;size:64" json:"name"`
}

// User is a stored identity with its role memberships.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserName     string    `gorm:"uniqueIndex;not null;size:256" json:"userName"`
	Email        string    `gorm:"uniqueIndex;not null;size:256" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Roles        []Role    `gorm:"many2many:user_roles;" json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleNames returns the names of the user's roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// UserResponse is the public shape of a user account.
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	UserName string    `json:"userName"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
}

// ToResponse maps a User to its transfer shape.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		UserName: u.UserName,
		Email:    u.Email,
		Roles:    u.RoleNames(),
	}
}
