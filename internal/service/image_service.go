package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"spaceofthoughts/internal/featureflags"
	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"
	"spaceofthoughts/internal/observability"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/storage"

	"github.com/google/uuid"
)

const (
	DefaultImageMaxUploadBytes = 10 * 1024 * 1024
	// ImageRoute is the public path prefix images are served under.
	ImageRoute = "/Images"
)

// Upload reject messages, all reported under the "file" key.
const (
	MsgUnsupportedFormat = "Unsupported file format"
	// MsgFileTooLarge is FileTooLargeMessage for the default limit.
	MsgFileTooLarge = "File size cannot be more than 10MB"
)

// FileTooLargeMessage names the upload limit in whole megabytes when it is
// one, and in bytes otherwise.
func FileTooLargeMessage(maxBytes int64) string {
	const mb = 1024 * 1024
	if maxBytes >= mb && maxBytes%mb == 0 {
		return fmt.Sprintf("File size cannot be more than %dMB", maxBytes/mb)
	}
	return fmt.Sprintf("File size cannot be more than %d bytes", maxBytes)
}

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// UploadImageInput is one multipart upload.
type UploadImageInput struct {
	// OriginalName is the client's file name; only its extension is used.
	OriginalName string
	FileName     string
	Title        string
	Size         int64
	Content      io.Reader
	// BaseURL is scheme://host of the request, used when no public base URL is configured.
	BaseURL string
}

type ImageService struct {
	repo          repository.ImageRepository
	store         storage.Storage
	events        EventPublisher
	flags         *featureflags.Manager
	maxBytes      int64
	publicBaseURL string
}

func NewImageService(
	repo repository.ImageRepository,
	store storage.Storage,
	events EventPublisher,
	flags *featureflags.Manager,
	maxBytes int64,
	publicBaseURL string,
) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxUploadBytes
	}
	return &ImageService{
		repo:          repo,
		store:         store,
		events:        events,
		flags:         flags,
		maxBytes:      maxBytes,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// validateUpload returns the first reject for in, keyed by field.
func (s *ImageService) validateUpload(in UploadImageInput, ext string) map[string]string {
	if in.Content == nil || in.OriginalName == "" {
		return map[string]string{"file": "The file field is required."}
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return map[string]string{"file": MsgUnsupportedFormat}
	}
	if in.Size > s.maxBytes {
		return map[string]string{"file": FileTooLargeMessage(s.maxBytes)}
	}
	if strings.TrimSpace(in.FileName) == "" {
		return map[string]string{"fileName": "The fileName field is required."}
	}
	if !storage.ValidName(in.FileName + ext) {
		return map[string]string{"fileName": "The fileName field must not contain path separators."}
	}
	if strings.TrimSpace(in.Title) == "" {
		return map[string]string{"title": "The title field is required."}
	}
	return nil
}

// ImageURL builds the public URL of a stored file.
func (s *ImageService) ImageURL(baseURL, storedName string) string {
	if s.publicBaseURL != "" {
		baseURL = s.publicBaseURL
	}
	return fmt.Sprintf("%s%s/%s", strings.TrimRight(baseURL, "/"), ImageRoute, storedName)
}

// Upload stores the file then records it. The two steps are not atomic; a
// failed insert removes the file again on a best-effort basis.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.BlogImage, error) {
	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	in.FileName = strings.TrimSpace(in.FileName)
	if problems := s.validateUpload(in, ext); problems != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, models.NewFieldValidationError(problems)
	}

	image := &models.BlogImage{
		ID:            uuid.New(),
		FileName:      in.FileName,
		FileExtension: ext,
		Title:         strings.TrimSpace(in.Title),
	}
	stored := image.StoredName()
	image.URL = s.ImageURL(in.BaseURL, stored)

	// Cap the read so a lying Content-Length cannot push past the limit.
	written, err := s.store.Save(ctx, stored, io.LimitReader(in.Content, s.maxBytes+1))
	if err != nil {
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return nil, models.NewInternalError(err)
	}
	if written > s.maxBytes {
		_ = s.store.Delete(ctx, stored)
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, models.NewFieldValidationError(map[string]string{"file": FileTooLargeMessage(s.maxBytes)})
	}

	if err := s.repo.Create(ctx, image); err != nil {
		if delErr := s.store.Delete(ctx, stored); delErr != nil {
			middleware.Logger.WarnContext(ctx, "orphaned image file", slog.String("file", stored), slog.String("error", delErr.Error()))
		}
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return nil, err
	}
	observability.ImageUploads.WithLabelValues("stored").Inc()

	if s.flags.Enabled(featureflags.WebPPreviews, "") {
		if _, err := s.store.Preview(ctx, stored); err != nil {
			middleware.Logger.WarnContext(ctx, "image preview failed", slog.String("file", stored), slog.String("error", err.Error()))
		}
	}

	publish(ctx, s.events, notifications.ContentEvent{
		Type:    notifications.EventImageUploaded,
		Topic:   notifications.TopicImages,
		Payload: notifications.ContentPayload{ID: image.ID, Title: image.Title, URL: image.URL},
	})
	return image, nil
}

func (s *ImageService) ListImages(ctx context.Context, q listing.Query) ([]models.BlogImage, error) {
	return s.repo.List(ctx, q)
}

func (s *ImageService) CountImages(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// DeleteImage removes the record, then the file. A file that cannot be
// removed is logged and left behind.
func (s *ImageService) DeleteImage(ctx context.Context, id uuid.UUID) (*models.BlogImage, error) {
	image, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, image.StoredName()); err != nil {
		middleware.Logger.WarnContext(ctx, "image file not removed", slog.String("file", image.StoredName()), slog.String("error", err.Error()))
	}
	publish(ctx, s.events, notifications.ContentEvent{
		Type:    notifications.EventImageDeleted,
		Topic:   notifications.TopicImages,
		Payload: notifications.ContentPayload{ID: image.ID, Title: image.Title, URL: image.URL},
	})
	return image, nil
}
