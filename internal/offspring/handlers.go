package offspring

import (
	"time"

	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	Farms   *farms.Service
}

func (h *Handlers) resolve(c *fiber.Ctx) (*models.OffspringTracking, error) {
	offspringID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, response.Error(c, "Invalid UUID format for offspring id", 400, nil)
	}
	t, err := h.Service.GetTracking(c.Context(), offspringID)
	if err != nil {
		return nil, response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), t.FarmID, middleware.CurrentUserID(c)); err != nil {
		return nil, response.FromError(c, err)
	}
	return t, nil
}

// GetTracking GET /api/v1/offspring/:id/tracking
func (h *Handlers) GetTracking(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	return response.Success(c, "Offspring tracking retrieved", BuildView(*t), nil)
}

// UpdateTracking PATCH /api/v1/offspring/:id/tracking
func (h *Handlers) UpdateTracking(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Name         *string  `json:"name"`
		BirthWeight  *float64 `json:"birth_weight"`
		DamID        *string  `json:"dam_id"`
		SireID       *string  `json:"sire_id"`
		FarmID       *string  `json:"farm_id"`
		BirthEventID *string  `json:"birth_event_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "No valid changes provided", 400, nil)
	}
	// Lineage and ownership are bound at birth.
	if body.DamID != nil || body.SireID != nil || body.FarmID != nil || body.BirthEventID != nil {
		return response.FromError(c, apperr.ImmutableField("dam_id, sire_id, farm_id and birth_event_id cannot be changed"))
	}

	updated, err := h.Service.UpdateTracking(c.Context(), UpdateTrackingInput{
		OffspringID: t.OffspringID,
		Name:        body.Name,
		BirthWeight: body.BirthWeight,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offspring tracking updated", BuildView(*updated), nil)
}

// ListByBirthEvent GET /api/v1/offspring/birth/:birthId
func (h *Handlers) ListByBirthEvent(c *fiber.Ctx) error {
	birthID, err := uuid.Parse(c.Params("birthId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for birth id", 400, nil)
	}
	views, err := h.Service.ListByBirthEvent(c.Context(), birthID)
	if err != nil {
		return response.FromError(c, err)
	}
	if len(views) > 0 {
		if err := h.Farms.Authorize(c.Context(), views[0].FarmID, middleware.CurrentUserID(c)); err != nil {
			return response.FromError(c, err)
		}
	}
	return response.Success(c, "Litter retrieved", views, nil)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// RecordWeaning POST /api/v1/offspring/:id/wean
func (h *Handlers) RecordWeaning(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date   string   `json:"date"`
		Weight *float64 `json:"weight"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return response.Error(c, "Invalid weaning payload", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	updated, err := h.Service.RecordWeaning(c.Context(), t.OffspringID, date, body.Weight)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Weaning recorded", BuildView(*updated), nil)
}

// RecordSale POST /api/v1/offspring/:id/sell
func (h *Handlers) RecordSale(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date  string   `json:"date"`
		Price *float64 `json:"price"`
		Buyer string   `json:"buyer"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return response.Error(c, "Invalid sale payload", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	updated, err := h.Service.RecordSale(c.Context(), t.OffspringID, date, body.Price, body.Buyer)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Sale recorded", BuildView(*updated), nil)
}

// RecordDeath POST /api/v1/offspring/:id/death
func (h *Handlers) RecordDeath(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date  string `json:"date"`
		Cause string `json:"cause"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return response.Error(c, "Invalid death payload", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	updated, err := h.Service.RecordDeath(c.Context(), t.OffspringID, date, body.Cause)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Death recorded", BuildView(*updated), nil)
}

// RecordCulling POST /api/v1/offspring/:id/cull
func (h *Handlers) RecordCulling(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date   string `json:"date"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return response.Error(c, "Invalid culling payload", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	updated, err := h.Service.RecordCulling(c.Context(), t.OffspringID, date, body.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Culling recorded", BuildView(*updated), nil)
}

// RecordTransfer POST /api/v1/offspring/:id/transfer
func (h *Handlers) RecordTransfer(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date        string `json:"date"`
		Destination string `json:"destination"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return response.Error(c, "Invalid transfer payload", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	updated, err := h.Service.RecordTransfer(c.Context(), t.OffspringID, date, body.Destination)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transfer recorded", BuildView(*updated), nil)
}

// AddGrowthMeasurement POST /api/v1/offspring/:id/growth
func (h *Handlers) AddGrowthMeasurement(c *fiber.Ctx) error {
	t, errResp := h.resolve(c)
	if t == nil {
		return errResp
	}
	var body struct {
		Date   string   `json:"date"`
		Weight float64  `json:"weight"`
		Height *float64 `json:"height"`
		Notes  string   `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "weight is required", 400, nil)
	}
	if body.Weight == 0 {
		return response.Error(c, "weight is required", 400, nil)
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
	}
	view, err := h.Service.AddGrowthMeasurement(c.Context(), t.OffspringID, models.GrowthMeasurement{
		Date:   date,
		Weight: body.Weight,
		Height: body.Height,
		Notes:  body.Notes,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Growth measurement added", view, nil)
}
