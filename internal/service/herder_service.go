package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/utils"
)

const maxHerderAge = 130

type HerderService struct {
	repo HerderStore
	log  zerolog.Logger
}

func NewHerderService(repo HerderStore, log zerolog.Logger) *HerderService {
	return &HerderService{
		repo: repo,
		log:  log.With().Str("component", "herders").Logger(),
	}
}

type HerderDetails struct {
	Herder    agro.Herder      `json:"herder"`
	Livestock []agro.Livestock `json:"livestock"`
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Register enrolls a herder. Biometric tokens are stored only as digests.
func (s *HerderService) Register(ctx context.Context, reg agro.HerderRegistration) (*agro.Herder, error) {
	name := strings.TrimSpace(reg.FullName)
	state := strings.TrimSpace(reg.StateOfOrigin)
	face := strings.TrimSpace(reg.FaceVector)
	finger := strings.TrimSpace(reg.FingerprintHash)

	switch {
	case name == "":
		return nil, invalid("full_name is required")
	case reg.Age <= 0 || reg.Age > maxHerderAge:
		return nil, invalid("age must be between 1 and %d", maxHerderAge)
	case state == "":
		return nil, invalid("state_of_origin is required")
	case face == "":
		return nil, invalid("face_vector is required")
	case finger == "":
		return nil, invalid("fingerprint_hash is required")
	}

	herder := &agro.Herder{
		FullName:      name,
		Age:           reg.Age,
		StateOfOrigin: state,
		PhoneNumber:   trimOptional(reg.PhoneNumber),
		NationalID:    trimOptional(reg.NationalID),
		PhotoURL:      trimOptional(reg.PhotoURL),
		Status:        agro.HerderStatusActive,
	}

	if err := s.repo.CreateWithBiometrics(ctx, herder, utils.DigestToken(face), utils.DigestToken(finger)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, storeError(err, "biometric enrollment")
		}
		s.log.Error().Err(err).Str("state", state).Msg("failed to register herder")
		return nil, storeError(err, "herder")
	}

	s.log.Info().
		Int64("herder_id", herder.ID).
		Str("state", herder.StateOfOrigin).
		Msg("registered herder")
	return herder, nil
}

func (s *HerderService) List(ctx context.Context) ([]agro.Herder, error) {
	herders, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "herders")
	}
	return herders, nil
}

func (s *HerderService) Get(ctx context.Context, id int64) (*HerderDetails, error) {
	if id <= 0 {
		return nil, invalid("herder id must be positive")
	}
	herder, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "herder")
	}
	livestock, err := s.repo.ListLivestock(ctx, id)
	if err != nil {
		return nil, storeError(err, "livestock")
	}
	return &HerderDetails{Herder: *herder, Livestock: livestock}, nil
}

func (s *HerderService) UpdateStatus(ctx context.Context, id int64, status string) (*agro.Herder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != agro.HerderStatusActive && status != agro.HerderStatusInactive {
		return nil, invalid("status must be %q or %q", agro.HerderStatusActive, agro.HerderStatusInactive)
	}
	herder, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, storeError(err, "herder")
	}
	s.log.Info().Int64("herder_id", id).Str("status", status).Msg("herder status changed")
	return herder, nil
}

// AddLivestock tags an animal to an existing herder. RFID codes are unique
// across all livestock.
func (s *HerderService) AddLivestock(ctx context.Context, reg agro.LivestockRegistration) (*agro.Livestock, error) {
	rfid := utils.NormalizeRFID(reg.RFIDCode)
	switch {
	case reg.HerderID <= 0:
		return nil, invalid("herder_id is required")
	case rfid == "":
		return nil, invalid("rfid_code is required")
	case reg.AgeYears != nil && *reg.AgeYears < 0:
		return nil, invalid("age_years cannot be negative")
	}

	animalType := strings.ToLower(strings.TrimSpace(reg.AnimalType))
	if animalType == "" {
		animalType = agro.DefaultAnimalType
	}
	health := strings.ToLower(strings.TrimSpace(reg.HealthStatus))
	if health == "" {
		health = agro.HealthHealthy
	}

	if _, err := s.repo.Get(ctx, reg.HerderID); err != nil {
		return nil, storeError(err, "herder")
	}

	livestock := &agro.Livestock{
		HerderID:     reg.HerderID,
		RFIDCode:     rfid,
		AnimalType:   animalType,
		Breed:        trimOptional(reg.Breed),
		AgeYears:     reg.AgeYears,
		HealthStatus: health,
	}
	if err := s.repo.CreateLivestock(ctx, livestock); err != nil {
		return nil, storeError(err, "rfid_code "+rfid)
	}

	s.log.Info().
		Int64("livestock_id", livestock.ID).
		Int64("herder_id", livestock.HerderID).
		Str("rfid", rfid).
		Msg("registered livestock")
	return livestock, nil
}
