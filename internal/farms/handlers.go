package farms

import (
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// CreateFarm POST /api/v1/farms
func (h *Handlers) CreateFarm(c *fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "name is required", 400, nil)
	}
	farm, err := h.Service.CreateFarm(c.Context(), middleware.CurrentUserID(c), body.Name, body.Location)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Farm created", farm, nil)
}

// ListFarms GET /api/v1/farms
func (h *Handlers) ListFarms(c *fiber.Ctx) error {
	list, err := h.Service.ListOwned(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Farms retrieved", list, nil)
}

// GetFarm GET /api/v1/farms/:id
func (h *Handlers) GetFarm(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Service.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	farm, err := h.Service.GetFarm(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Farm retrieved", farm, nil)
}
