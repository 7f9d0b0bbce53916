package service

import (
	"context"

	"spaceofthoughts/internal/listing"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/repository"

	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, q listing.Query) ([]models.UserResponse, error) {
	users, err := s.userRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// CountUsers returns the public user count, which leaves out the seeded admin.
func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	return max(n-1, 0), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) (*models.UserResponse, error) {
	if id == models.AdminUserID {
		return nil, models.NewForbiddenError("The system account cannot be deleted")
	}
	user, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}
