package events

import (
	"errors"
	"strconv"

	eventsvc "harbor-backend/internal/application/events"
	"harbor-backend/internal/pkg/response"
	"harbor-backend/internal/vault"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for the vault event feed.
type Handlers struct {
	Service *eventsvc.Service
}

// ListVaultEvents GET /api/v1/vaults/:id/events?limit=N — newest first.
func (h *Handlers) ListVaultEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for vault id", fiber.StatusBadRequest, nil)
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return response.Error(c, "Invalid limit", fiber.StatusBadRequest, nil)
		}
	}
	feed, err := h.Service.ListVaultEvents(c.UserContext(), id, limit)
	if err != nil {
		if errors.Is(err, vault.ErrVaultNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Events retrieved", fiber.Map{"events": feed}, nil)
}
