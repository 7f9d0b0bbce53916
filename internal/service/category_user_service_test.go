package service

import (
	"context"
	"testing"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_CreateCategory(t *testing.T) {
	events := &eventRecorder{}
	var created *models.Category
	svc := NewCategoryService(&categoryRepoStub{
		createFn: func(_ context.Context, c *models.Category) error {
			c.ID = uuid.New()
			created = c
			return nil
		},
	}, events)

	category, err := svc.CreateCategory(context.Background(), models.CategoryInput{Name: "  Go Tips "})
	require.NoError(t, err)
	assert.Same(t, created, category)
	assert.Equal(t, "Go Tips", category.Name)
	assert.Equal(t, "go-tips", category.URLHandle)
	assert.Equal(t, []string{notifications.EventCategoryCreated}, events.types())
	assert.Equal(t, notifications.TopicCategories, events.events[0].Topic)

	_, err = svc.CreateCategory(context.Background(), models.CategoryInput{})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "The name field is required.", appErr.Fields["name"])
}

func TestCategoryService_UpdateCategory(t *testing.T) {
	id := uuid.New()
	events := &eventRecorder{}
	svc := NewCategoryService(&categoryRepoStub{
		updateFn: func(_ context.Context, c *models.Category) error {
			if c.ID != id {
				return models.NewNotFoundError("Category", c.ID)
			}
			return nil
		},
	}, events)

	category, err := svc.UpdateCategory(context.Background(), id, models.CategoryInput{Name: "Renamed", URLHandle: "kept"})
	require.NoError(t, err)
	assert.Equal(t, id, category.ID)
	assert.Equal(t, "kept", category.URLHandle)
	assert.Equal(t, []string{notifications.EventCategoryUpdated}, events.types())

	_, err = svc.UpdateCategory(context.Background(), uuid.New(), models.CategoryInput{Name: "x"})
	assertAppError(t, err, models.CodeNotFound)
	assert.Len(t, events.events, 1)
}

func TestCategoryService_DeleteCategory(t *testing.T) {
	id := uuid.New()
	events := &eventRecorder{}
	svc := NewCategoryService(&categoryRepoStub{
		deleteFn: func(_ context.Context, got uuid.UUID) (*models.Category, error) {
			if got != id {
				return nil, models.NewNotFoundError("Category", got)
			}
			return &models.Category{ID: got, Name: "Old"}, nil
		},
	}, events)

	category, err := svc.DeleteCategory(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Old", category.Name)
	assert.Equal(t, []string{notifications.EventCategoryDeleted}, events.types())

	_, err = svc.DeleteCategory(context.Background(), uuid.New())
	assertAppError(t, err, models.CodeNotFound)
}

func TestUserService(t *testing.T) {
	reader := models.User{
		ID:       uuid.New(),
		UserName: "reader",
		Email:    "reader@example.com",
		Roles:    []models.Role{{ID: models.ReaderRoleID, Name: models.RoleReader}},
	}

	t.Run("list maps to responses", func(t *testing.T) {
		var gotQuery listing.Query
		svc := NewUserService(&userRepoStub{
			listFn: func(_ context.Context, q listing.Query) ([]models.User, error) {
				gotQuery = q
				return []models.User{reader}, nil
			},
		})
		users, err := svc.ListUsers(context.Background(), listing.Query{Query: "rea"})
		require.NoError(t, err)
		assert.Equal(t, "rea", gotQuery.Query)
		require.Len(t, users, 1)
		assert.Equal(t, []string{models.RoleReader}, users[0].Roles)
	})

	t.Run("count leaves out the admin", func(t *testing.T) {
		for stored, want := range map[int64]int64{0: 0, 1: 0, 5: 4} {
			svc := NewUserService(&userRepoStub{countFn: func(context.Context) (int64, error) { return stored, nil }})
			got, err := svc.CountUsers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got, "stored=%d", stored)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{
			getByIDFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
				if id == reader.ID {
					u := reader
					return &u, nil
				}
				return nil, models.NewNotFoundError("User", id)
			},
		})
		got, err := svc.GetUserByID(context.Background(), reader.ID)
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", got.Email)

		_, err = svc.GetUserByID(context.Background(), uuid.New())
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{
			deleteFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
				u := reader
				u.ID = id
				return &u, nil
			},
		})
		got, err := svc.DeleteUser(context.Background(), reader.ID)
		require.NoError(t, err)
		assert.Equal(t, reader.ID, got.ID)

		_, err = svc.DeleteUser(context.Background(), models.AdminUserID)
		assertAppError(t, err, models.CodeForbidden)
	})
}
