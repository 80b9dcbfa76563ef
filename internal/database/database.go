package database

import (
	"herdbook-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers.
// TranslateError maps driver unique-violation errors to gorm.ErrDuplicatedKey
// so services can turn them into conflicts.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// Partial unique indexes GORM column tags cannot express. The first one is
// the database-level arm of the one-active-pregnancy-per-dam rule: two
// transactions can both pass the guard read under read committed, and the
// index rejects the second insert. The second hardens the idempotent
// mating fan-out against the same race.
var rawIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_pregnancy_per_dam ON "Pregnancies" (dam_id) WHERE (status = 'confirmed' OR status = 'progressing') AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_pregnancy_mating_dam ON "Pregnancies" (mating_event_id, dam_id) WHERE deleted_at IS NULL`,
}

// AutoMigrate runs migrations for all herdbook models. The composite index
// on Pregnancies(dam_id, status) backs the one-active-pregnancy-per-dam
// guard query; the raw indexes enforce the invariant itself.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Farm{},
		&models.AnimalType{},
		&models.Animal{},
		&models.MatingEvent{},
		&models.MatingDam{},
		&models.Pregnancy{},
		&models.BirthEvent{},
		&models.OffspringTracking{},
		&models.GeneticProfile{},
	); err != nil {
		return err
	}
	for _, stmt := range rawIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
