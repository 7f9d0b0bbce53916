package service

import (
	"context"
	"strings"
	"time"

	"spaceofthoughts/internal/cache"
	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/validation"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type PostService struct {
	postRepo repository.PostRepository
	events   EventPublisher
	now      func() time.Time
}

func NewPostService(postRepo repository.PostRepository, events EventPublisher) *PostService {
	return &PostService{
		postRepo: postRepo,
		events:   events,
		now:      time.Now,
	}
}

// URLHandle returns handle trimmed, or a slug of title when handle is blank.
func URLHandle(handle, title string) string {
	if h := strings.TrimSpace(handle); h != "" {
		return h
	}
	return slug.Make(title)
}

func (s *PostService) fromInput(id uuid.UUID, in models.BlogPostInput) (*models.BlogPost, error) {
	if problems := validation.Struct(&in); len(problems) > 0 {
		return nil, models.NewFieldValidationError(problems)
	}
	published := in.PublishedDate
	if published.IsZero() {
		published = s.now().UTC()
	}
	return &models.BlogPost{
		ID:               id,
		Title:            strings.TrimSpace(in.Title),
		ShortDescription: in.ShortDescription,
		Content:          in.Content,
		FeaturedImageURL: strings.TrimSpace(in.FeaturedImageURL),
		URLHandle:        URLHandle(in.URLHandle, in.Title),
		PublishedDate:    published,
		Author:           strings.TrimSpace(in.Author),
		IsVisible:        in.IsVisible,
	}, nil
}

func postEvent(eventType string, p *models.BlogPost) notifications.ContentEvent {
	return notifications.ContentEvent{
		Type:  eventType,
		Topic: notifications.TopicPosts,
		Payload: notifications.ContentPayload{
			ID:        p.ID,
			Title:     p.Title,
			URLHandle: p.URLHandle,
		},
	}
}

func (s *PostService) CreatePost(ctx context.Context, in models.BlogPostInput) (*models.BlogPost, error) {
	post, err := s.fromInput(uuid.Nil, in)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Create(ctx, post, in.Categories); err != nil {
		return nil, err
	}
	publish(ctx, s.events, postEvent(notifications.EventPostCreated, post))
	return post, nil
}

// GetPost reads through the post cache.
func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	err := cache.Aside(ctx, cache.PostKey(id.String()), &post, cache.PostTTL, func() error {
		found, err := s.postRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPostByURLHandle reads through the post cache.
func (s *PostService) GetPostByURLHandle(ctx context.Context, handle string) (*models.BlogPost, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, models.NewValidationError("urlHandle is required")
	}
	var post models.BlogPost
	err := cache.Aside(ctx, cache.PostHandleKey(handle), &post, cache.PostTTL, func() error {
		found, err := s.postRepo.GetByURLHandle(ctx, handle)
		if err != nil {
			return err
		}
		post = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostService) ListPosts(ctx context.Context, q listing.Query) ([]models.BlogPost, error) {
	return s.postRepo.List(ctx, q)
}

func (s *PostService) CountPosts(ctx context.Context) (int64, error) {
	return s.postRepo.Count(ctx)
}

// UpdatePost replaces the post with id. Last write wins.
func (s *PostService) UpdatePost(ctx context.Context, id uuid.UUID, in models.BlogPostInput) (*models.BlogPost, error) {
	post, err := s.fromInput(id, in)
	if err != nil {
		return nil, err
	}
	previous, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Update(ctx, post, in.Categories); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx,
		cache.PostKey(id.String()),
		cache.PostHandleKey(previous.URLHandle),
		cache.PostHandleKey(post.URLHandle),
	)
	publish(ctx, s.events, postEvent(notifications.EventPostUpdated, post))
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.PostKey(id.String()), cache.PostHandleKey(post.URLHandle))
	publish(ctx, s.events, postEvent(notifications.EventPostDeleted, post))
	return post, nil
}
