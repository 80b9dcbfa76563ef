package genetics

import (
	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/pkg/response"
	"herdbook-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Engine   *Engine
	Registry *registry.Service
	Farms    *farms.Service
}

// authorizeAnimal resolves the animal and checks the caller owns its farm.
func (h *Handlers) authorizeAnimal(c *fiber.Ctx, animalID uuid.UUID) error {
	animal, err := h.Registry.GetAnimal(c.Context(), animalID)
	if err != nil {
		return err
	}
	return h.Farms.Authorize(c.Context(), animal.FarmID, middleware.CurrentUserID(c))
}

// GetProfile GET /api/v1/genetics/animal/:id?refresh=true
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	animalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for animal id", 400, nil)
	}
	if err := h.authorizeAnimal(c, animalID); err != nil {
		return response.FromError(c, err)
	}
	row, err := h.Engine.ComputeProfile(c.Context(), animalID, c.QueryBool("refresh"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Genetic profile retrieved", row, nil)
}

// GetPedigree GET /api/v1/genetics/animal/:id/pedigree
func (h *Handlers) GetPedigree(c *fiber.Ctx) error {
	animalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for animal id", 400, nil)
	}
	if err := h.authorizeAnimal(c, animalID); err != nil {
		return response.FromError(c, err)
	}
	row, err := h.Engine.ComputeProfile(c.Context(), animalID, c.QueryBool("refresh"))
	if err != nil {
		return response.FromError(c, err)
	}
	profile, err := DecodeProfile(row)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pedigree retrieved", fiber.Map{
		"animal_id": profile.AnimalID,
		"pedigree":  profile.Pedigree,
	}, nil)
}

// CheckCompatibility GET /api/v1/genetics/compatibility/:id1/:id2
func (h *Handlers) CheckCompatibility(c *fiber.Ctx) error {
	idA, err := uuid.Parse(c.Params("id1"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for first animal id", 400, nil)
	}
	idB, err := uuid.Parse(c.Params("id2"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for second animal id", 400, nil)
	}
	if err := h.authorizeAnimal(c, idA); err != nil {
		return response.FromError(c, err)
	}
	if err := h.authorizeAnimal(c, idB); err != nil {
		return response.FromError(c, err)
	}
	result, err := h.Engine.CheckCompatibility(c.Context(), idA, idB)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Compatibility assessed", result, nil)
}

// PairSuggestions GET /api/v1/genetics/farm/:farmId/pair-suggestions
func (h *Handlers) PairSuggestions(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	suggestions, err := h.Engine.FarmPairSuggestions(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pair suggestions retrieved", suggestions, nil)
}

// BatchCompute POST /api/v1/genetics/farm/:farmId/batch-compute
func (h *Handlers) BatchCompute(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	result, err := h.Engine.BatchCompute(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Batch computation finished", result, nil)
}
