package server

import (
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetImages godoc
// @Summary List uploaded images
// @Tags images
// @Security BearerAuth
// @Produce json
// @Param query query string false "Substring of the title"
// @Param sortBy query string false "dateCreated or title"
// @Param sortDirection query string false "asc or desc"
// @Param pageNumber query int false "Page number, starting at 1"
// @Param pageSize query int false "Page size, default 100"
// @Success 200 {array} models.BlogImage
// @Router /images [get]
func (s *Server) GetImages(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return nil
	}
	images, err := s.imageService.ListImages(c.UserContext(), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	if images == nil {
		images = []models.BlogImage{}
	}
	return c.JSON(images)
}

// CountImages godoc
// @Summary Count uploaded images
// @Tags images
// @Security BearerAuth
// @Produce json
// @Success 200 {integer} int
// @Router /images/count [get]
func (s *Server) CountImages(c *fiber.Ctx) error {
	n, err := s.imageService.CountImages(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(n)
}

// UploadImage godoc
// @Summary Upload an image
// @Description Accepts .jpg, .jpeg and .png files up to 10MB. The file is served under /Images/{fileName}{extension}.
// @Tags images
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Param fileName formData string true "Stored name without extension"
// @Param title formData string true "Title"
// @Success 200 {object} models.BlogImage
// @Failure 400 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	in := service.UploadImageInput{
		FileName: c.FormValue("fileName"),
		Title:    c.FormValue("title"),
		BaseURL:  requestBaseURL(c),
	}

	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewFieldValidationError(map[string]string{"file": "Unable to read uploaded file"}))
		}
		defer func() { _ = src.Close() }()
		in.OriginalName = file.Filename
		in.Size = file.Size
		in.Content = src
	}

	image, err := s.imageService.Upload(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(image)
}

// DeleteImage godoc
// @Summary Delete an image
// @Tags images
// @Security BearerAuth
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} models.BlogImage
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [delete]
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	image, err := s.imageService.DeleteImage(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(image)
}
