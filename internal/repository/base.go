// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"spaceofthoughts/internal/database"
	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/observability"

	"gorm.io/gorm"
)

// Listing specs per collection. Sort keys are API field names; values are columns.
var (
	PostCollection = listing.Collection{
		FilterColumn: "title",
		SortFields:   map[string]string{"publishedDate": "published_date", "title": "title"},
	}
	CategoryCollection = listing.Collection{
		FilterColumn: "name",
		SortFields:   map[string]string{"name": "name", "urlHandle": "url_handle"},
	}
	ImageCollection = listing.Collection{
		FilterColumn: "title",
		SortFields:   map[string]string{"dateCreated": "date_created", "title": "title"},
	}
	UserCollection = listing.Collection{
		FilterColumn: "user_name",
		SortFields:   map[string]string{"userName": "user_name", "email": "email"},
	}
)

// base carries what every repository shares: the handle and its instrumentation.
type base struct {
	db    *gorm.DB
	table string
	log   *observability.RepoLogger
}

func newBase(db *gorm.DB, table string) base {
	return base{db: db, table: table, log: observability.NewRepoLogger(table)}
}

// begin opens a span and latency timer for method. The returned func must be
// called with the method's final error.
func (b base) begin(ctx context.Context, method string) (context.Context, func(error)) {
	ctx, span := observability.StartRepositorySpan(ctx, b.table, method)
	done := observability.TrackQuery(method, b.table)
	return ctx, func(err error) {
		done()
		if err != nil && !models.IsCode(err, models.CodeNotFound) {
			b.log.LogError(ctx, err, method)
		}
		observability.EndSpan(span, err)
	}
}

// translate maps driver errors onto AppErrors.
func translate(err error, resource string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case database.IsUniqueViolation(err):
		return models.NewConflictError(resource+" already exists", err)
	default:
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
}
