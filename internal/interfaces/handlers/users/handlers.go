package users

import (
	"errors"

	usersvc "harbor-backend/internal/application/users"
	"harbor-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for user provisioning endpoints.
type Handlers struct {
	Service *usersvc.Service
}

// CreateUser POST /api/v1/users — provision an operator account (superadmin only).
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var body usersvc.CreateUserInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.CreateUser(c.UserContext(), body)
	if err != nil {
		if errors.Is(err, usersvc.ErrEmailTaken) {
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "User created", fiber.Map{
		"user": fiber.Map{
			"user_id":  user.UserID.String(),
			"fullname": user.Fullname,
			"email":    user.Email,
			"role":     user.Role,
		},
	}, nil)
}
