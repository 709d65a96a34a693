package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS users (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email           TEXT NOT NULL,
		password_hash   TEXT NOT NULL,
		full_name       TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'officer',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users(email);`,
	`CREATE TABLE IF NOT EXISTS herders (
		id              BIGSERIAL PRIMARY KEY,
		full_name       TEXT NOT NULL,
		age             INT NOT NULL CHECK (age > 0),
		state_of_origin TEXT NOT NULL,
		phone_number    TEXT,
		national_id     TEXT,
		photo_url       TEXT,
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_herders_created_at ON herders(created_at);`,
	`CREATE TABLE IF NOT EXISTS biometrics (
		id                  BIGSERIAL PRIMARY KEY,
		herder_id           BIGINT NOT NULL REFERENCES herders(id),
		face_digest         TEXT NOT NULL,
		fingerprint_digest  TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_biometrics_herder_id ON biometrics(herder_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_biometrics_face_digest ON biometrics(face_digest);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_biometrics_fingerprint_digest ON biometrics(fingerprint_digest);`,
	`CREATE TABLE IF NOT EXISTS livestock (
		id              BIGSERIAL PRIMARY KEY,
		herder_id       BIGINT NOT NULL REFERENCES herders(id),
		rfid_code       TEXT NOT NULL,
		animal_type     TEXT NOT NULL DEFAULT 'cattle',
		breed           TEXT,
		age_years       INT,
		health_status   TEXT NOT NULL DEFAULT 'healthy',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_livestock_rfid_code ON livestock(rfid_code);`,
	`CREATE INDEX IF NOT EXISTS idx_livestock_herder_id ON livestock(herder_id);`,
	`CREATE TABLE IF NOT EXISTS routes (
		id              BIGSERIAL PRIMARY KEY,
		route_name      TEXT NOT NULL,
		state           TEXT NOT NULL,
		geojson_data    JSONB NOT NULL,
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_routes_status ON routes(status);`,
	`CREATE TABLE IF NOT EXISTS verifications (
		id                BIGSERIAL PRIMARY KEY,
		idempotency_key   TEXT NOT NULL,
		herder_id         BIGINT REFERENCES herders(id),
		officer_id        UUID REFERENCES users(id),
		verification_type TEXT NOT NULL,
		result            TEXT NOT NULL,
		risk_level        TEXT NOT NULL,
		inputs_digest     TEXT NOT NULL,
		location_lat      DOUBLE PRECISION,
		location_lng      DOUBLE PRECISION,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_verifications_idempotency_key ON verifications(idempotency_key);`,
	`CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
