package registry

import (
	"time"

	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	Farms   *farms.Service
}

type createAnimalBody struct {
	FarmID             string   `json:"farm_id"`
	AnimalTypeID       string   `json:"animal_type_id"`
	TagNumber          string   `json:"tag_number"`
	Name               string   `json:"name"`
	Gender             string   `json:"gender"`
	Breed              string   `json:"breed"`
	DateOfBirth        string   `json:"date_of_birth"`
	ReproductiveStatus *string  `json:"reproductive_status"`
	BreedingStatus     *string  `json:"breeding_status"`
	Weight             *float64 `json:"weight"`
	HealthStatus       string   `json:"health_status"`
	SireID             *string  `json:"sire_id"`
	DamID              *string  `json:"dam_id"`
}

// CreateAnimal POST /api/v1/animals
func (h *Handlers) CreateAnimal(c *fiber.Ctx) error {
	var body createAnimalBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	farmID, err := uuid.Parse(body.FarmID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm_id", 400, nil)
	}
	typeID, err := uuid.Parse(body.AnimalTypeID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for animal_type_id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	animal := &models.Animal{
		FarmID:             farmID,
		AnimalTypeID:       typeID,
		TagNumber:          body.TagNumber,
		Name:               body.Name,
		Gender:             body.Gender,
		Breed:              body.Breed,
		ReproductiveStatus: body.ReproductiveStatus,
		BreedingStatus:     body.BreedingStatus,
		Weight:             body.Weight,
		HealthStatus:       body.HealthStatus,
	}
	if animal.HealthStatus == "" {
		animal.HealthStatus = "good"
	}
	if body.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", body.DateOfBirth)
		if err != nil {
			return response.Error(c, "Invalid date_of_birth (expected YYYY-MM-DD)", 400, nil)
		}
		animal.DateOfBirth = &dob
	}
	for _, link := range []struct {
		raw  *string
		dest **uuid.UUID
		name string
	}{
		{body.SireID, &animal.SireID, "sire_id"},
		{body.DamID, &animal.DamID, "dam_id"},
	} {
		if link.raw == nil || *link.raw == "" {
			continue
		}
		id, err := uuid.Parse(*link.raw)
		if err != nil {
			return response.Error(c, "Invalid UUID format for "+link.name, 400, nil)
		}
		*link.dest = &id
	}

	created, err := h.Service.CreateAnimal(c.Context(), animal)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Animal registered", created, nil)
}

// GetAnimal GET /api/v1/animals/:id
func (h *Handlers) GetAnimal(c *fiber.Ctx) error {
	animalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for animal id", 400, nil)
	}
	animal, err := h.Service.GetAnimal(c.Context(), animalID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Farms.Authorize(c.Context(), animal.FarmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Animal retrieved", animal, nil)
}

// ListFarmAnimals GET /api/v1/animals/farm/:farmId
func (h *Handlers) ListFarmAnimals(c *fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}
	animals, err := h.Service.ListFarmAnimals(c.Context(), farmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Animals retrieved", animals, nil)
}

type createAnimalTypeBody struct {
	FarmID              string `json:"farm_id"`
	Name                string `json:"name"`
	EnableReproduction  *bool  `json:"enable_reproduction"`
	EnableGenetics      *bool  `json:"enable_genetics"`
	GestationPeriodDays int    `json:"gestation_period_days"`
	MinBreedingAgeDays  int    `json:"min_breeding_age_days"`
	MaturityAgeDays     int    `json:"maturity_age_days"`
	BreedingSeason      string `json:"breeding_season"`
}

// CreateAnimalType POST /api/v1/animal-types
func (h *Handlers) CreateAnimalType(c *fiber.Ctx) error {
	var body createAnimalTypeBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	farmID, err := uuid.Parse(body.FarmID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for farm_id", 400, nil)
	}
	if err := h.Farms.Authorize(c.Context(), farmID, middleware.CurrentUserID(c)); err != nil {
		return response.FromError(c, err)
	}

	t := &models.AnimalType{
		FarmID:              &farmID,
		Name:                body.Name,
		EnableReproduction:  true,
		EnableGenetics:      true,
		GestationPeriodDays: body.GestationPeriodDays,
		MinBreedingAgeDays:  body.MinBreedingAgeDays,
		MaturityAgeDays:     body.MaturityAgeDays,
		BreedingSeason:      body.BreedingSeason,
	}
	if body.EnableReproduction != nil {
		t.EnableReproduction = *body.EnableReproduction
	}
	if body.EnableGenetics != nil {
		t.EnableGenetics = *body.EnableGenetics
	}
	created, err := h.Service.CreateAnimalType(c.Context(), t)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Animal type created", created, nil)
}

// GetAnimalType GET /api/v1/animal-types/:id
func (h *Handlers) GetAnimalType(c *fiber.Ctx) error {
	typeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for animal type id", 400, nil)
	}
	t, err := h.Service.GetAnimalType(c.Context(), typeID)
	if err != nil {
		return response.FromError(c, err)
	}
	if t.FarmID != nil {
		if err := h.Farms.Authorize(c.Context(), *t.FarmID, middleware.CurrentUserID(c)); err != nil {
			return response.FromError(c, err)
		}
	}
	return response.Success(c, "Animal type retrieved", t, nil)
}
