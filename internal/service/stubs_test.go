package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"

	"github.com/google/uuid"
)

type postRepoStub struct {
	createFn         func(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error
	getByIDFn        func(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	getByURLHandleFn func(ctx context.Context, handle string) (*models.BlogPost, error)
	listFn           func(ctx context.Context, q listing.Query) ([]models.BlogPost, error)
	countFn          func(ctx context.Context) (int64, error)
	updateFn         func(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error
	deleteFn         func(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error {
	if s.createFn != nil {
		return s.createFn(ctx, post, categoryIDs)
	}
	return nil
}

func (s *postRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, models.NewNotFoundError("BlogPost", id)
}

func (s *postRepoStub) GetByURLHandle(ctx context.Context, handle string) (*models.BlogPost, error) {
	if s.getByURLHandleFn != nil {
		return s.getByURLHandleFn(ctx, handle)
	}
	return nil, models.NewNotFoundError("BlogPost", handle)
}

func (s *postRepoStub) List(ctx context.Context, q listing.Query) ([]models.BlogPost, error) {
	if s.listFn != nil {
		return s.listFn(ctx, q)
	}
	return nil, nil
}

func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

func (s *postRepoStub) Update(ctx context.Context, post *models.BlogPost, categoryIDs []uuid.UUID) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, post, categoryIDs)
	}
	return nil
}

func (s *postRepoStub) Delete(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, models.NewNotFoundError("BlogPost", id)
}

type categoryRepoStub struct {
	createFn  func(ctx context.Context, category *models.Category) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*models.Category, error)
	updateFn  func(ctx context.Context, category *models.Category) error
	deleteFn  func(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

func (s *categoryRepoStub) Create(ctx context.Context, category *models.Category) error {
	if s.createFn != nil {
		return s.createFn(ctx, category)
	}
	return nil
}

func (s *categoryRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, models.NewNotFoundError("Category", id)
}

func (s *categoryRepoStub) List(context.Context, listing.Query) ([]models.Category, error) {
	return nil, nil
}

func (s *categoryRepoStub) Count(context.Context) (int64, error) { return 0, nil }

func (s *categoryRepoStub) Update(ctx context.Context, category *models.Category) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, category)
	}
	return nil
}

func (s *categoryRepoStub) Delete(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, models.NewNotFoundError("Category", id)
}

type imageRepoStub struct {
	createFn func(ctx context.Context, image *models.BlogImage) error
	deleteFn func(ctx context.Context, id uuid.UUID) (*models.BlogImage, error)
}

func (s *imageRepoStub) Create(ctx context.Context, image *models.BlogImage) error {
	if s.createFn != nil {
		return s.createFn(ctx, image)
	}
	return nil
}

func (s *imageRepoStub) GetByID(_ context.Context, id uuid.UUID) (*models.BlogImage, error) {
	return nil, models.NewNotFoundError("BlogImage", id)
}

func (s *imageRepoStub) List(context.Context, listing.Query) ([]models.BlogImage, error) {
	return nil, nil
}

func (s *imageRepoStub) Count(context.Context) (int64, error) { return 0, nil }

func (s *imageRepoStub) Delete(ctx context.Context, id uuid.UUID) (*models.BlogImage, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, models.NewNotFoundError("BlogImage", id)
}

type userRepoStub struct {
	createFn           func(ctx context.Context, user *models.User, roles ...string) error
	getByIDFn          func(ctx context.Context, id uuid.UUID) (*models.User, error)
	getByEmailFn       func(ctx context.Context, email string) (*models.User, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
	existsByUserNameFn func(ctx context.Context, userName string) (bool, error)
	listFn             func(ctx context.Context, q listing.Query) ([]models.User, error)
	countFn            func(ctx context.Context) (int64, error)
	deleteFn           func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User, roles ...string) error {
	if s.createFn != nil {
		return s.createFn(ctx, user, roles...)
	}
	return nil
}

func (s *userRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn != nil {
		return s.getByEmailFn(ctx, email)
	}
	return nil, models.NewNotFoundError("User", email)
}

func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if s.existsByEmailFn != nil {
		return s.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (s *userRepoStub) ExistsByUserName(ctx context.Context, userName string) (bool, error) {
	if s.existsByUserNameFn != nil {
		return s.existsByUserNameFn(ctx, userName)
	}
	return false, nil
}

func (s *userRepoStub) List(ctx context.Context, q listing.Query) ([]models.User, error) {
	if s.listFn != nil {
		return s.listFn(ctx, q)
	}
	return nil, nil
}

func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

func (s *userRepoStub) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, models.NewNotFoundError("User", id)
}

// memStore is an in-memory storage.Storage.
type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	previews  []string
	saveErr   error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, name string, r io.Reader) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return n, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = buf.Bytes()
	return n, nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *memStore) Preview(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return "", errors.New("no such file")
	}
	m.previews = append(m.previews, name)
	return "previews/" + name + ".webp", nil
}

func (m *memStore) Path(name string) string { return "/mem/" + name }

func (m *memStore) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

type eventRecorder struct {
	mu     sync.Mutex
	events []notifications.ContentEvent
	err    error
}

func (r *eventRecorder) PublishContent(_ context.Context, ev notifications.ContentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type issuerStub struct {
	issueFn func(identity auth.Identity, roles []string) (string, error)
}

func (s issuerStub) Issue(identity auth.Identity, roles []string) (string, error) {
	if s.issueFn != nil {
		return s.issueFn(identity, roles)
	}
	return "signed-token", nil
}

type revokerStub struct {
	revoked map[string]time.Time
	err     error
}

func (s *revokerStub) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = make(map[string]time.Time)
	}
	s.revoked[tokenID] = expiresAt
	return nil
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *models.AppError with code %s, got %T (%v)", code, err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
	return appErr
}

func assertFields(t *testing.T, err error, want map[string]string) {
	t.Helper()
	appErr := assertAppError(t, err, models.CodeValidation)
	if len(appErr.Fields) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, appErr.Fields)
	}
	for k, v := range want {
		if appErr.Fields[k] != v {
			t.Fatalf("field %q: expected %q, got %q", k, v, appErr.Fields[k])
		}
	}
}
