package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogPost is a published article.
type BlogPost struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string     `gorm:"not null" json:"title"`
	ShortDescription string     `gorm:"type:text" json:"shortDescription"`
	Content          string     `gorm:"type:text" json:"content"`
	FeaturedImageURL string     `gorm:"column:featured_image_url" json:"featuredImageUrl"`
	URLHandle        string     `gorm:"column:url_handle;index" json:"urlHandle"`
	PublishedDate    time.Time  `gorm:"index" json:"publishedDate"`
	Author           string     `json:"author"`
	IsVisible        bool       `json:"isVisible"`
	Categories       []Category `gorm:"many2many:blog_post_categories;" json:"categories"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (p *BlogPost) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Category groups blog posts.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	URLHandle string    `gorm:"column:url_handle" json:"urlHandle"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BlogPostInput is the request body for creating or replacing a post.
type BlogPostInput struct {
	Title            string      `json:"title" validate:"required,max=200"`
	ShortDescription string      `json:"shortDescription" validate:"max=1000"`
	Content          string      `json:"content" validate:"required"`
	FeaturedImageURL string      `json:"featuredImageUrl" validate:"omitempty,url"`
	URLHandle        string      `json:"urlHandle" validate:"max=200"`
	PublishedDate    time.Time   `json:"publishedDate"`
	Author           string      `json:"author" validate:"required,max=200"`
	IsVisible        bool        `json:"isVisible"`
	Categories       []uuid.UUID `json:"categories"`
}

// CategoryInput is the request body for creating or replacing a category.
type CategoryInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	URLHandle string `json:"urlHandle" validate:"max=200"`
}
