package server

import (
	"spaceofthoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPosts godoc
// @Summary List blog posts
// @Tags blogposts
// @Produce json
// @Param query query string false "Substring of the title"
// @Param sortBy query string false "publishedDate or title"
// @Param sortDirection query string false "asc or desc"
// @Param pageNumber query int false "Page number, starting at 1"
// @Param pageSize query int false "Page size, default 100"
// @Success 200 {array} models.BlogPost
// @Failure 400 {object} models.ErrorResponse
// @Router /blogposts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return nil
	}
	posts, err := s.postService.ListPosts(c.UserContext(), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	return c.JSON(posts)
}

// CountPosts godoc
// @Summary Count blog posts
// @Tags blogposts
// @Produce json
// @Success 200 {integer} int
// @Router /blogposts/count [get]
func (s *Server) CountPosts(c *fiber.Ctx) error {
	n, err := s.postService.CountPosts(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(n)
}

// GetPost godoc
// @Summary Get a blog post
// @Tags blogposts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} models.ErrorResponse
// @Router /blogposts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetPostByURLHandle godoc
// @Summary Get a blog post by its URL handle
// @Tags blogposts
// @Produce json
// @Param urlHandle path string true "URL handle"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} models.ErrorResponse
// @Router /blogposts/slug/{urlHandle} [get]
func (s *Server) GetPostByURLHandle(c *fiber.Ctx) error {
	post, err := s.postService.GetPostByURLHandle(c.UserContext(), c.Params("urlHandle"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost godoc
// @Summary Create a blog post
// @Description Unknown category ids are skipped. An empty urlHandle is generated from the title.
// @Tags blogposts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.BlogPostInput true "Post"
// @Success 200 {object} models.BlogPost
// @Failure 400 {object} models.ErrorResponse
// @Router /blogposts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in models.BlogPostInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost godoc
// @Summary Replace a blog post
// @Tags blogposts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body models.BlogPostInput true "Post"
// @Success 200 {object} models.BlogPost
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blogposts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in models.BlogPostInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	post, err := s.postService.UpdatePost(c.UserContext(), id, in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost godoc
// @Summary Delete a blog post
// @Tags blogposts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} models.ErrorResponse
// @Router /blogposts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.DeletePost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}
