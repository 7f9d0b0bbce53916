package server

import (
	"spaceofthoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories godoc
// @Summary List categories
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param query query string false "Substring of the name"
// @Param sortBy query string false "name or urlHandle"
// @Param sortDirection query string false "asc or desc"
// @Param pageNumber query int false "Page number, starting at 1"
// @Param pageSize query int false "Page size, default 100"
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return nil
	}
	categories, err := s.categoryService.ListCategories(c.UserContext(), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return c.JSON(categories)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.CategoryInput true "Category"
// @Success 200 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var in models.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	category, err := s.categoryService.CreateCategory(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// CountCategories godoc
// @Summary Count categories
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Success 200 {integer} int
// @Router /categories/count [get]
func (s *Server) CountCategories(c *fiber.Ctx) error {
	n, err := s.categoryService.CountCategories(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(n)
}

// GetCategory godoc
// @Summary Get a category
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [get]
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// UpdateCategory godoc
// @Summary Replace a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param request body models.CategoryInput true "Category"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in models.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	category, err := s.categoryService.UpdateCategory(c.UserContext(), id, in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Posts keep existing; only their link to the category goes away.
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.DeleteCategory(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}
