package server

import (
	"time"

	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Login godoc
// @Summary Log in
// @Description Checks credentials and returns a 15 minute access token. The token is also set in the Authorization cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	resp, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.authn.SetSession(c, resp.Token, time.Now().Add(auth.TokenLifetime))
	return c.JSON(resp)
}

// Register godoc
// @Summary Register a reader account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "New account"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// Logout godoc
// @Summary Log out
// @Description Revokes the current token and clears the session cookie.
// @Tags auth
// @Security BearerAuth
// @Success 200
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), middleware.PrincipalFrom(c)); err != nil {
		return respondServiceError(c, err)
	}
	s.authn.ClearSession(c)
	return c.SendStatus(fiber.StatusOK)
}

// GetUsers godoc
// @Summary List user accounts
// @Description The system account is never listed.
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param query query string false "Substring of the user name"
// @Param sortBy query string false "userName or email"
// @Param sortDirection query string false "asc or desc"
// @Param pageNumber query int false "Page number, starting at 1"
// @Param pageSize query int false "Page size, default 100"
// @Success 200 {array} models.UserResponse
// @Router /auth/users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return nil
	}
	users, err := s.userService.ListUsers(c.UserContext(), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUser godoc
// @Summary Get a user account
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser godoc
// @Summary Delete a user account
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// CountUsers godoc
// @Summary Count user accounts
// @Description Excludes the system account.
// @Tags users
// @Produce json
// @Success 200 {integer} int
// @Router /auth/count [get]
func (s *Server) CountUsers(c *fiber.Ctx) error {
	n, err := s.userService.CountUsers(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(n)
}
