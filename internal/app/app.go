package app

import (
	"net/http"

	"herdbook-backend/internal/auth"
	"herdbook-backend/internal/birth"
	"herdbook-backend/internal/config"
	"herdbook-backend/internal/database"
	"herdbook-backend/internal/farms"
	"herdbook-backend/internal/genetics"
	"herdbook-backend/internal/health"
	"herdbook-backend/internal/mating"
	"herdbook-backend/internal/middleware"
	"herdbook-backend/internal/offspring"
	"herdbook-backend/internal/pregnancy"
	"herdbook-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns the DB and Redis handles for startup checks.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	// Session (Redis); the health marker reuses the client
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	// --- Routes (no auth) ---
	var pinger health.DBPinger
	if db != nil {
		pinger = &gormPinger{db: db}
	}
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		DB:             pinger,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", healthHandlers.Status)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// --- Protected modules (auth required) ---
	if db != nil {
		registerRoutes(app, db)
	}

	return app, db, rdb, nil
}

// registerRoutes wires the farm, registry, reproduction chain and genetics
// modules onto the app. Split out so tests can mount routes on an
// in-memory database without Redis.
func registerRoutes(app *fiber.App, db *gorm.DB) {
	registrySvc := &registry.Service{DB: db}
	farmsSvc := &farms.Service{DB: db}

	farmHandlers := &farms.Handlers{Service: farmsSvc}
	farmGroup := app.Group("/api/v1/farms", middleware.RequireAuth())
	farmGroup.Post("/", farmHandlers.CreateFarm)
	farmGroup.Get("/", farmHandlers.ListFarms)
	farmGroup.Get("/:id", farmHandlers.GetFarm)

	registryHandlers := &registry.Handlers{Service: registrySvc, Farms: farmsSvc}
	animalGroup := app.Group("/api/v1/animals", middleware.RequireAuth())
	animalGroup.Post("/", registryHandlers.CreateAnimal)
	animalGroup.Get("/farm/:farmId", registryHandlers.ListFarmAnimals)
	animalGroup.Get("/:id", registryHandlers.GetAnimal)
	typeGroup := app.Group("/api/v1/animal-types", middleware.RequireAuth())
	typeGroup.Post("/", registryHandlers.CreateAnimalType)
	typeGroup.Get("/:id", registryHandlers.GetAnimalType)

	matingSvc := &mating.Service{DB: db, Registry: registrySvc}
	matingHandlers := &mating.Handlers{Service: matingSvc, Farms: farmsSvc}
	matingGroup := app.Group("/api/v1/mating", middleware.RequireAuth())
	matingGroup.Post("/", matingHandlers.RecordMating)
	matingGroup.Get("/farm/:farmId", matingHandlers.ListFarmMatings)
	matingGroup.Get("/:id", matingHandlers.GetMating)
	matingGroup.Patch("/:id", matingHandlers.UpdateMating)
	matingGroup.Patch("/:id/outcome", matingHandlers.RecordOutcome)
	matingGroup.Patch("/:id/cancel", matingHandlers.CancelMating)

	pregnancySvc := &pregnancy.Service{DB: db, Registry: registrySvc}
	pregnancyHandlers := &pregnancy.Handlers{Service: pregnancySvc, Farms: farmsSvc}
	pregnancyGroup := app.Group("/api/v1/pregnancy", middleware.RequireAuth())
	pregnancyGroup.Post("/", pregnancyHandlers.ConfirmPregnancy)
	pregnancyGroup.Get("/farm/:farmId", pregnancyHandlers.ListFarmPregnancies)
	pregnancyGroup.Get("/:id", pregnancyHandlers.GetPregnancy)
	pregnancyGroup.Patch("/:id/terminate", pregnancyHandlers.Terminate)
	pregnancyGroup.Post("/:id/checkup", pregnancyHandlers.AddCheckup)
	pregnancyGroup.Post("/:id/complication", pregnancyHandlers.AddComplication)

	factory := &offspring.Factory{Registry: registrySvc}
	birthSvc := &birth.Service{DB: db, Registry: registrySvc, Factory: factory}
	birthHandlers := &birth.Handlers{Service: birthSvc, Farms: farmsSvc}
	birthGroup := app.Group("/api/v1/birth", middleware.RequireAuth())
	birthGroup.Post("/", birthHandlers.RecordBirth)
	birthGroup.Get("/farm/:farmId", birthHandlers.ListFarmBirths)
	birthGroup.Get("/:id", birthHandlers.GetBirth)
	birthGroup.Patch("/:id/neonatal-death", birthHandlers.RecordNeonatalDeath)

	offspringSvc := &offspring.Service{DB: db, Registry: registrySvc}
	offspringHandlers := &offspring.Handlers{Service: offspringSvc, Farms: farmsSvc}
	offspringGroup := app.Group("/api/v1/offspring", middleware.RequireAuth())
	offspringGroup.Get("/birth/:birthId", offspringHandlers.ListByBirthEvent)
	offspringGroup.Get("/:id/tracking", offspringHandlers.GetTracking)
	offspringGroup.Patch("/:id/tracking", offspringHandlers.UpdateTracking)
	offspringGroup.Post("/:id/wean", offspringHandlers.RecordWeaning)
	offspringGroup.Post("/:id/sell", offspringHandlers.RecordSale)
	offspringGroup.Post("/:id/death", offspringHandlers.RecordDeath)
	offspringGroup.Post("/:id/cull", offspringHandlers.RecordCulling)
	offspringGroup.Post("/:id/transfer", offspringHandlers.RecordTransfer)
	offspringGroup.Post("/:id/growth", offspringHandlers.AddGrowthMeasurement)

	engine := &genetics.Engine{DB: db, Registry: registrySvc}
	geneticsHandlers := &genetics.Handlers{Engine: engine, Registry: registrySvc, Farms: farmsSvc}
	geneticsGroup := app.Group("/api/v1/genetics", middleware.RequireAuth())
	geneticsGroup.Get("/animal/:id", geneticsHandlers.GetProfile)
	geneticsGroup.Get("/animal/:id/pedigree", geneticsHandlers.GetPedigree)
	geneticsGroup.Get("/compatibility/:id1/:id2", geneticsHandlers.CheckCompatibility)
	geneticsGroup.Get("/farm/:farmId/pair-suggestions", geneticsHandlers.PairSuggestions)
	geneticsGroup.Post("/farm/:farmId/batch-compute", geneticsHandlers.BatchCompute)
}

// RegisterRoutes is the test hook: mount the domain routes on an existing app.
func RegisterRoutes(app *fiber.App, db *gorm.DB) {
	registerRoutes(app, db)
}

type gormPinger struct {
	db *gorm.DB
}

func (p *gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Handler adapts the Fiber app to net/http.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
