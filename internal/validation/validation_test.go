package validation

import (
	"testing"

	"spaceofthoughts/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStruct(t *testing.T) {
	t.Run("valid post", func(t *testing.T) {
		in := &models.BlogPostInput{Title: "Hello", Content: "Body", Author: "me"}
		assert.Empty(t, Struct(in))
	})

	t.Run("missing fields keyed by json name", func(t *testing.T) {
		problems := Struct(&models.BlogPostInput{FeaturedImageURL: "not a url"})
		assert.Equal(t, "The title field is required.", problems["title"])
		assert.Equal(t, "The content field is required.", problems["content"])
		assert.Equal(t, "The author field is required.", problems["author"])
		assert.Equal(t, "The featuredImageUrl field is not a valid URL.", problems["featuredImageUrl"])
	})

	t.Run("max length", func(t *testing.T) {
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'a'
		}
		problems := Struct(&models.CategoryInput{Name: string(long)})
		assert.Equal(t, "The field name must be a string with a maximum length of 100.", problems["name"])
	})
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("writer@test.com"))
	assert.False(t, Email(""))
	assert.False(t, Email("writer"))
	assert.False(t, Email("writer@"))
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		failures int
	}{
		{"admin default", "Admin@123", 0},
		{"no digits or case needed", "abc!def", 0},
		{"too short", "ab!cd", 1},
		{"no symbol", "abcdefgh", 1},
		{"too few unique chars", "aa!aaaa", 1},
		{"everything wrong", "aaa", 3},
		{"empty", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Password(tt.password), tt.failures)
		})
	}
}

func TestNumbered(t *testing.T) {
	out := Numbered(Password("aaa"))
	assert.Equal(t, "Passwords must be at least 7 characters.", out["1"])
	assert.Equal(t, "Passwords must have at least one non alphanumeric character.", out["2"])
	assert.Equal(t, "Passwords must use at least 3 different characters.", out["3"])
}
