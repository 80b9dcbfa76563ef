package birth

import (
	"time"

	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	Farms   *farms.Service
}

type recordBirthBody struct {
	PregnancyID     string `json:"pregnancy_id"`
	DamID           string `json:"dam_id"`
	SireID          string `json:"sire_id"`
	BirthDate       string `json:"birth_date"`
	TotalOffspring  int    `json:"total_offspring"`
	LiveBirths      int    `json:"live_births"`
	Stillbirths     int    `json:"stillbirths"`
	WeakOffspring   int    `json:"weak_offspring"`
	MaleOffspring   int    `json:"male_offspring"`
	FemaleOffspring int    `json:"female_offspring"`
	Notes           string `json:"notes"`
}

// RecordBirth POST /api/v1/birth
func (h *Handlers) RecordBirth(c *fiber.Ctx) error {
	var body recordBirthBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.PregnancyID == "" || body.DamID == "" || body.SireID == "" || body.BirthDate == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	pregnancyID, err := uuid.Parse(body.PregnancyID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for pregnancy_id", 400, nil)
	}
	damID, err := uuid.Parse(body.DamID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for dam_id", 400, nil)
	}
	sireID, err := uuid.Parse(body.SireID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for sire_id", 400, nil)
	}
	birthDate, err := time.Parse("2006-01-02", body.BirthDate)
	if err != nil {
		return response.Error(c, "Invalid birth_date (expected YYYY-MM-DD)", 400, nil)
	}

	// Resolve the pregnancy first so NotFound applies before the permission check.
	farmID, err := h.Service.PregnancyFarm(c.Context(), pregnancyID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	event, animals, err := h.Service.RecordBirth(c.Context(), RecordBirthInput{
		PregnancyID:     pregnancyID,
		DamID:           damID,
		SireID:          sireID,
		BirthDate:       birthDate,
		TotalOffspring:  body.TotalOffspring,
		LiveBirths:      body.LiveBirths,
		Stillbirths:     body.Stillbirths,
		WeakOffspring:   body.WeakOffspring,
		MaleOffspring:   body.MaleOffspring,
		FemaleOffspring: body.FemaleOffspring,
		Notes:           body.Notes,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Birth recorded", fiber.Map{
		"birth_event": event,
		"offspring":   animals,
	}, nil)
}

// GetBirth GET /api/v1/birth/:id
func (h *Handlers) GetBirth(c *fiber.Ctx) error {
	birthID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for birth id", 400, nil)
	}
	event, err := h.Service.GetBirth(c.Context(), birthID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Birth event retrieved", event, nil)
}

// ListFarmBirths GET /api/v1/birth/farm/:farmId
func (h *Handlers) ListFarmBirths(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Service.ListFarmBirths(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Birth events retrieved", events, nil)
}

// RecordNeonatalDeath PATCH /api/v1/birth/:id/neonatal-death
func (h *Handlers) RecordNeonatalDeath(c *fiber.Ctx) error {
	birthID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for birth id", 400, nil)
	}
	var body struct {
		OffspringID string `json:"offspring_id"`
		Date        string `json:"date"`
		Cause       string `json:"cause"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "offspring_id is required", 400, nil)
	}
	if body.OffspringID == "" {
		return response.Error(c, "offspring_id is required", 400, nil)
	}
	offspringID, err := uuid.Parse(body.OffspringID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for offspring_id", 400, nil)
	}

	event, err := h.Service.GetBirth(c.Context(), birthID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	var date time.Time
	if body.Date != "" {
		date, err = time.Parse("2006-01-02", body.Date)
		if err != nil {
			return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
		}
	}

	tracking, err := h.Service.RecordNeonatalDeath(c.Context(), birthID, offspringID, date, body.Cause)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Neonatal death recorded", tracking, nil)
}
