package service

import (
	"context"
	"strings"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/validation"

	"github.com/google/uuid"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	events       EventPublisher
}

func NewCategoryService(categoryRepo repository.CategoryRepository, events EventPublisher) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, events: events}
}

func fromCategoryInput(id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	if problems := validation.Struct(&in); len(problems) > 0 {
		return nil, models.NewFieldValidationError(problems)
	}
	return &models.Category{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		URLHandle: URLHandle(in.URLHandle, in.Name),
	}, nil
}

func categoryEvent(eventType string, c *models.Category) notifications.ContentEvent {
	return notifications.ContentEvent{
		Type:    eventType,
		Topic:   notifications.TopicCategories,
		Payload: notifications.ContentPayload{ID: c.ID, Title: c.Name, URLHandle: c.URLHandle},
	}
}

func (s *CategoryService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	category, err := fromCategoryInput(uuid.Nil, in)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	publish(ctx, s.events, categoryEvent(notifications.EventCategoryCreated, category))
	return category, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *CategoryService) ListCategories(ctx context.Context, q listing.Query) ([]models.Category, error) {
	return s.categoryRepo.List(ctx, q)
}

func (s *CategoryService) CountCategories(ctx context.Context) (int64, error) {
	return s.categoryRepo.Count(ctx)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	category, err := fromCategoryInput(id, in)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	publish(ctx, s.events, categoryEvent(notifications.EventCategoryUpdated, category))
	return category, nil
}

// DeleteCategory removes the category. Posts keep their links to it.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, categoryEvent(notifications.EventCategoryDeleted, category))
	return category, nil
}
