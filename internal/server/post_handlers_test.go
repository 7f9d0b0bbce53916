package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPostRepository is a mock implementation of repository.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error {
	args := m.Called(ctx, post, categoryIDs)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlogPost), args.Error(1)
}

func (m *MockPostRepository) GetByURLHandle(ctx context.Context, handle string) (*models.BlogPost, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlogPost), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, q listing.Query) ([]models.BlogPost, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BlogPost), args.Error(1)
}

func (m *MockPostRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error {
	args := m.Called(ctx, post, categoryIDs)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlogPost), args.Error(1)
}

func postApp(repo *MockPostRepository) *fiber.App {
	s := &Server{postService: service.NewPostService(repo, nil)}
	app := fiber.New()
	app.Get("/posts", s.GetPosts)
	app.Get("/posts/count", s.CountPosts)
	app.Get("/posts/:id", s.GetPost)
	return app
}

func TestGetPost(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		param          string
		setupMock      func(*MockPostRepository)
		expectedStatus int
	}{
		{
			name:  "Success",
			param: id.String(),
			setupMock: func(m *MockPostRepository) {
				m.On("GetByID", mock.Anything, id).Return(&models.BlogPost{ID: id, Title: "Hello"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "Not found",
			param: id.String(),
			setupMock: func(m *MockPostRepository) {
				m.On("GetByID", mock.Anything, id).Return(nil, models.NewNotFoundError("BlogPost", id))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Invalid ID",
			param:          "abc",
			setupMock:      func(*MockPostRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPostRepository)
			tt.setupMock(repo)

			resp, err := postApp(repo).Test(httptest.NewRequest(http.MethodGet, "/posts/"+tt.param, nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			repo.AssertExpectations(t)
		})
	}
}

func TestGetPosts_PassesListingQuery(t *testing.T) {
	repo := new(MockPostRepository)
	want := listing.Query{
		Query:         "go",
		SortBy:        "title",
		SortDirection: "desc",
		PageNumber:    listing.Int(2),
		PageSize:      listing.Int(10),
	}
	repo.On("List", mock.Anything, want).Return([]models.BlogPost{{Title: "Go"}}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/posts?query=go&sortBy=title&sortDirection=desc&pageNumber=2&pageSize=10", nil)
	resp, err := postApp(repo).Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	repo.AssertExpectations(t)
}

func TestCountPosts(t *testing.T) {
	repo := new(MockPostRepository)
	repo.On("Count", mock.Anything).Return(int64(7), nil)

	resp, err := postApp(repo).Test(httptest.NewRequest(http.MethodGet, "/posts/count", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7, decode[int](t, resp))
}
