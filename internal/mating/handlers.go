package mating

import (
	"time"

	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	Farms   *farms.Service
}

type recordMatingBody struct {
	FarmID     string                 `json:"farm_id"`
	SireID     string                 `json:"sire_id"`
	DamIDs     []string               `json:"dam_ids"`
	MatingDate string                 `json:"mating_date"`
	MatingType string                 `json:"mating_type"`
	Notes      string                 `json:"notes"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// RecordMating POST /api/v1/mating
func (h *Handlers) RecordMating(c *fiber.Ctx) error {
	var body recordMatingBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.FarmID == "" || body.SireID == "" || len(body.DamIDs) == 0 || body.MatingDate == "" || body.MatingType == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	farmID, err := uuid.Parse(body.FarmID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm_id", 400, nil)
	}
	sireID, err := uuid.Parse(body.SireID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for sire_id", 400, nil)
	}
	damIDs := make([]uuid.UUID, 0, len(body.DamIDs))
	for _, d := range body.DamIDs {
		id, err := uuid.Parse(d)
		if err != nil {
			return response.Error(c, "Invalid UUID format for dam_ids", 400, nil)
		}
		damIDs = append(damIDs, id)
	}
	matingDate, err := time.Parse("2006-01-02", body.MatingDate)
	if err != nil {
		return response.Error(c, "Invalid mating_date (expected YYYY-MM-DD)", 400, nil)
	}

	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	event, err := h.Service.RecordMating(c.Context(), RecordMatingInput{
		FarmID:     farmID,
		SireID:     sireID,
		DamIDs:     damIDs,
		MatingDate: matingDate,
		MatingType: body.MatingType,
		Notes:      body.Notes,
		Metadata:   body.Metadata,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Mating event recorded", event, nil)
}

// GetMating GET /api/v1/mating/:id
func (h *Handlers) GetMating(c *fiber.Ctx) error {
	matingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for mating id", 400, nil)
	}
	event, err := h.Service.GetMating(c.Context(), matingID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Mating event retrieved", event, nil)
}

// ListFarmMatings GET /api/v1/mating/farm/:farmId
func (h *Handlers) ListFarmMatings(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Service.ListFarmMatings(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Mating events retrieved", events, nil)
}

// RecordOutcome PATCH /api/v1/mating/:id/outcome
func (h *Handlers) RecordOutcome(c *fiber.Ctx) error {
	matingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for mating id", 400, nil)
	}
	var body struct {
		Outcome string `json:"outcome"`
		Notes   string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "outcome is required", 400, nil)
	}
	if body.Outcome == "" {
		return response.Error(c, "outcome is required", 400, nil)
	}

	event, err := h.Service.GetMating(c.Context(), matingID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	updated, pregnancies, err := h.Service.RecordOutcome(c.Context(), matingID, body.Outcome, body.Notes)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Mating outcome recorded", fiber.Map{
		"mating_event": updated,
		"pregnancies":  pregnancies,
	}, nil)
}

// UpdateMating PATCH /api/v1/mating/:id
func (h *Handlers) UpdateMating(c *fiber.Ctx) error {
	matingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for mating id", 400, nil)
	}
	var body struct {
		SireID     *string `json:"sire_id"`
		DamIDs     []string `json:"dam_ids"`
		FarmID     *string `json:"farm_id"`
		MatingDate *string `json:"mating_date"`
		MatingType *string `json:"mating_type"`
		Notes      *string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "No valid changes provided", 400, nil)
	}
	// Sire, dams and farm are bound at creation.
	if body.SireID != nil || len(body.DamIDs) > 0 || body.FarmID != nil {
		return response.FromError(c, apperr.ImmutableField("sire_id, dam_ids and farm_id cannot be changed"))
	}

	event, err := h.Service.GetMating(c.Context(), matingID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	in := UpdateMatingInput{MatingID: matingID, MatingType: body.MatingType, Notes: body.Notes}
	if body.MatingDate != nil {
		d, err := time.Parse("2006-01-02", *body.MatingDate)
		if err != nil {
			return response.Error(c, "Invalid mating_date (expected YYYY-MM-DD)", 400, nil)
		}
		in.MatingDate = &d
	}
	updated, err := h.Service.UpdateMating(c.Context(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Mating event updated", updated, nil)
}

// CancelMating PATCH /api/v1/mating/:id/cancel
func (h *Handlers) CancelMating(c *fiber.Ctx) error {
	matingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for mating id", 400, nil)
	}
	event, err := h.Service.GetMating(c.Context(), matingID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), event.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	updated, err := h.Service.CancelMating(c.Context(), matingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Mating event cancelled", updated, nil)
}
