package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogImage is the metadata record of an uploaded image file.
type BlogImage struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileName      string    `gorm:"not null" json:"fileName"`
	FileExtension string    `gorm:"not null;size:16" json:"fileExtension"`
	Title         string    `gorm:"not null" json:"title"`
	URL           string    `gorm:"column:url;not null" json:"url"`
	DateCreated   time.Time `gorm:"index" json:"dateCreated"`
}

// BeforeCreate assigns a UUID and creation time when missing.
func (i *BlogImage) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.DateCreated.IsZero() {
		i.DateCreated = time.Now().UTC()
	}
	return nil
}

// StoredName is the on-disk name of the image file.
func (i *BlogImage) StoredName() string {
	return i.FileName + i.FileExtension
}
