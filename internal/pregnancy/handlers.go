package pregnancy

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

// ConfirmPregnancy POST /api/v1/pregnancy
func (h *Handlers) ConfirmPregnancy(c *fiber.Ctx) error {
	var body struct {
		FarmID         string `json:"farm_id"`
		DamID          string `json:"dam_id"`
		SireID         string `json:"sire_id"`
		MatingEventID  string `json:"mating_event_id"`
		ConceptionDate string `json:"conception_date"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.FarmID == "" || body.DamID == "" || body.SireID == "" || body.MatingEventID == "" || body.ConceptionDate == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	farmID, err := uuid.Parse(body.FarmID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm_id", 400, nil)
	}
	damID, err := uuid.Parse(body.DamID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for dam_id", 400, nil)
	}
	sireID, err := uuid.Parse(body.SireID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for sire_id", 400, nil)
	}
	matingID, err := uuid.Parse(body.MatingEventID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for mating_event_id", 400, nil)
	}
	conception, err := time.Parse("2006-01-02", body.ConceptionDate)
	if err != nil {
		return response.Error(c, "Invalid conception_date (expected YYYY-MM-DD)", 400, nil)
	}

	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	p, err := h.Service.ConfirmPregnancy(c.Context(), ConfirmPregnancyInput{
		FarmID:         farmID,
		DamID:          damID,
		SireID:         sireID,
		MatingEventID:  matingID,
		ConceptionDate: conception,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Pregnancy confirmed", BuildView(*p, time.Now()), nil)
}

// GetPregnancy GET /api/v1/pregnancy/:id
func (h *Handlers) GetPregnancy(c *fiber.Ctx) error {
	pregnancyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for pregnancy id", 400, nil)
	}
	view, err := h.Service.GetView(c.Context(), pregnancyID, time.Now())
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), view.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pregnancy retrieved", view, nil)
}

// ListFarmPregnancies GET /api/v1/pregnancy/farm/:farmId?status=...
func (h *Handlers) ListFarmPregnancies(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	views, err := h.Service.ListFarmPregnancies(c.Context(), farmID, c.Query("status"), time.Now())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pregnancies retrieved", views, nil)
}

// Terminate PATCH /api/v1/pregnancy/:id/terminate
func (h *Handlers) Terminate(c *fiber.Ctx) error {
	pregnancyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for pregnancy id", 400, nil)
	}
	var body struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "reason is required", 400, nil)
	}
	if body.Reason == "" {
		return response.Error(c, "reason is required", 400, nil)
	}

	p, err := h.Service.GetPregnancy(c.Context(), pregnancyID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), p.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	updated, err := h.Service.Terminate(c.Context(), pregnancyID, body.Reason, body.Notes)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pregnancy terminated", BuildView(*updated, time.Now()), nil)
}

// AddCheckup POST /api/v1/pregnancy/:id/checkup
func (h *Handlers) AddCheckup(c *fiber.Ctx) error {
	pregnancyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for pregnancy id", 400, nil)
	}
	var body struct {
		Date         string `json:"date"`
		Veterinarian string `json:"veterinarian"`
		Condition    string `json:"condition"`
		Notes        string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid checkup payload", 400, nil)
	}

	p, err := h.Service.GetPregnancy(c.Context(), pregnancyID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), p.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	checkup := Checkup{Veterinarian: body.Veterinarian, Condition: body.Condition, Notes: body.Notes}
	if body.Date != "" {
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
		}
		checkup.Date = d
	}

	updated, err := h.Service.AddCheckup(c.Context(), pregnancyID, checkup)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Checkup added", BuildView(*updated, time.Now()), nil)
}

// AddComplication POST /api/v1/pregnancy/:id/complication
func (h *Handlers) AddComplication(c *fiber.Ctx) error {
	pregnancyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for pregnancy id", 400, nil)
	}
	var body struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "description is required", 400, nil)
	}
	if body.Description == "" {
		return response.Error(c, "description is required", 400, nil)
	}

	p, err := h.Service.GetPregnancy(c.Context(), pregnancyID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), p.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	comp := Complication{Description: body.Description, Severity: body.Severity}
	if body.Date != "" {
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return response.Error(c, "Invalid date (expected YYYY-MM-DD)", 400, nil)
		}
		comp.Date = d
	}

	updated, err := h.Service.AddComplication(c.Context(), pregnancyID, comp)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Complication added", BuildView(*updated, time.Now()), nil)
}
