package server

import (
	"errors"
	"strconv"
	"strings"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseListingQuery reads query, sortBy, sortDirection, pageNumber and
// pageSize. A page parameter that is present but not an integer writes a 400
// and returns errResponseWritten.
func parseListingQuery(c *fiber.Ctx) (listing.Query, error) {
	q := listing.Query{
		Query:         c.Query("query"),
		SortBy:        c.Query("sortBy"),
		SortDirection: c.Query("sortDirection"),
	}

	problems := map[string]string{}
	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"pageNumber", &q.PageNumber},
		{"pageSize", &q.PageSize},
	} {
		raw := strings.TrimSpace(c.Query(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems[p.name] = "The value '" + raw + "' is not valid for " + p.name + "."
			continue
		}
		*p.dst = listing.Int(n)
	}
	if len(problems) > 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewFieldValidationError(problems))
		return q, errResponseWritten
	}
	return q, nil
}

// parseUUID extracts a route parameter as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{param: "The value '" + c.Params(param) + "' is not valid."}))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// parseBody decodes the JSON body into dst.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// mapServiceError converts an AppError code into an HTTP status.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, mapServiceError(err), err)
}

// requestBaseURL is scheme://host of the current request.
func requestBaseURL(c *fiber.Ctx) string {
	return c.Protocol() + "://" + c.Hostname()
}
