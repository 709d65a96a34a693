package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/geo"
	"agro-herders-service/internal/metrics"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/utils"
)

// Locator answers geofence membership queries. *geo.Index implements it.
type Locator interface {
	PointInRoutes(lat, lng float64) ([]agro.Route, error)
}

// Auditor receives one record per verification. *AuditWriter implements it.
type Auditor interface {
	Enqueue(ctx context.Context, rec agro.AuditRecord) error
}

type VerificationOptions struct {
	Policy RoutePolicy
	// LocationOptional lets a verification without coordinates reach
	// "verified" when the other signals match.
	LocationOptional bool
}

type VerificationService struct {
	herders          HerderStore
	locator          Locator
	audit            Auditor
	policy           RoutePolicy
	locationOptional bool
	log              zerolog.Logger
	metrics          *metrics.Metrics
}

func NewVerificationService(
	herders HerderStore,
	locator Locator,
	audit Auditor,
	opts VerificationOptions,
	log zerolog.Logger,
	m *metrics.Metrics,
) *VerificationService {
	policy := opts.Policy
	if policy == nil {
		policy = stateRoutePolicy{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &VerificationService{
		herders:          herders,
		locator:          locator,
		audit:            audit,
		policy:           policy,
		locationOptional: opts.LocationOptional,
		log:              log.With().Str("component", "verification").Logger(),
		metrics:          m,
	}
}

type fullInput struct {
	face        string
	fingerprint string
	rfid        string
	location    *geo.Point
}

func validateFullRequest(req agro.FullVerificationRequest) (fullInput, error) {
	in := fullInput{
		face:        strings.TrimSpace(req.FaceVector),
		fingerprint: strings.TrimSpace(req.FingerprintHash),
		rfid:        utils.NormalizeRFID(req.RFIDCode),
	}

	var missing []string
	if in.face == "" {
		missing = append(missing, "face_vector")
	}
	if in.fingerprint == "" {
		missing = append(missing, "fingerprint_hash")
	}
	if in.rfid == "" {
		missing = append(missing, "rfid_code")
	}
	if len(missing) > 0 {
		return fullInput{}, invalid("%s required", strings.Join(missing, ", "))
	}

	switch {
	case req.LocationLat == nil && req.LocationLng == nil:
	case req.LocationLat == nil || req.LocationLng == nil:
		return fullInput{}, invalid("location_lat and location_lng must be supplied together")
	default:
		if err := geo.ValidatePoint(*req.LocationLat, *req.LocationLng); err != nil {
			return fullInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		in.location = &geo.Point{Lat: *req.LocationLat, Lng: *req.LocationLng}
	}
	return in, nil
}

// Verify combines face, fingerprint, RFID and optional location into a
// verdict. Unrecognised people are a "failed" verdict, not an error; errors
// are reserved for bad input and store outages.
func (s *VerificationService) Verify(ctx context.Context, officerID string, req agro.FullVerificationRequest) (*agro.VerificationResult, error) {
	start := time.Now()

	in, err := validateFullRequest(req)
	if err != nil {
		return nil, err
	}

	herder, identityProblems, err := s.resolveIdentity(ctx, in.face, in.fingerprint)
	if err != nil {
		return nil, err
	}

	result := &agro.VerificationResult{Livestock: []agro.Livestock{}}
	var problems []string

	livestock, err := s.herders.FindLivestockByRFID(ctx, in.rfid)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		problems = append(problems, "livestock RFID is not registered")
	case err != nil:
		return nil, storeError(err, "livestock")
	default:
		result.Livestock = append(result.Livestock, *livestock)
		if herder != nil && livestock.HerderID == herder.ID {
			result.Signals.Livestock = true
		} else if herder != nil {
			problems = append(problems, "livestock is registered to a different herder")
		}
	}

	locationOK := false
	if in.location != nil {
		routes, err := s.locator.PointInRoutes(in.location.Lat, in.location.Lng)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		allowed := allowedRoutes(s.policy, herder, routes)
		locationOK = len(allowed) > 0
		result.Signals.Location = &locationOK
		if !locationOK && herder != nil {
			if len(routes) > 0 {
				problems = append(problems, "location is on a route not open to this herder")
			} else {
				problems = append(problems, "location is outside all approved grazing routes")
			}
		}
	} else {
		locationOK = s.locationOptional
		if !locationOK && herder != nil {
			problems = append(problems, "location was not provided")
		}
	}

	result.Signals.Identity = herder != nil
	switch {
	case herder == nil:
		result.Status = agro.VerdictFailed
		result.RiskLevel = agro.RiskHigh
		result.Message = "Verification failed - identity could not be confirmed: " + strings.Join(identityProblems, "; ")
	case result.Signals.Livestock && locationOK:
		result.Status = agro.VerdictVerified
		result.RiskLevel = agro.RiskLow
		result.Herder = herder
		result.Message = "All verification checks passed"
	default:
		result.Status = agro.VerdictSuspicious
		result.RiskLevel = agro.RiskMedium
		result.Herder = herder
		result.Message = "Partial verification - " + strings.Join(problems, "; ")
	}

	rec := agro.AuditRecord{
		OfficerID:        optionalString(officerID),
		VerificationType: agro.VerificationFull,
		Result:           result.Status,
		RiskLevel:        result.RiskLevel,
		InputsDigest:     utils.DigestInputs(utils.DigestToken(in.face), utils.DigestToken(in.fingerprint), in.rfid),
	}
	if herder != nil {
		rec.HerderID = &herder.ID
	}
	if in.location != nil {
		rec.LocationLat = &in.location.Lat
		rec.LocationLng = &in.location.Lng
	}
	s.record(ctx, rec, time.Since(start))

	s.log.Info().
		Str("status", string(result.Status)).
		Str("risk_level", string(result.RiskLevel)).
		Bool("identity", result.Signals.Identity).
		Bool("livestock", result.Signals.Livestock).
		Bool("location", locationOK).
		Str("policy", s.policy.Name()).
		Msg("full verification completed")

	return result, nil
}

// resolveIdentity returns the herder both biometrics point to, or nil plus the
// reasons identity could not be established.
func (s *VerificationService) resolveIdentity(ctx context.Context, face, fingerprint string) (*agro.Herder, []string, error) {
	byFace, err := s.lookup(ctx, s.herders.FindByFaceDigest, face)
	if err != nil {
		return nil, nil, err
	}
	byFinger, err := s.lookup(ctx, s.herders.FindByFingerprintDigest, fingerprint)
	if err != nil {
		return nil, nil, err
	}

	var problems []string
	if byFace == nil {
		problems = append(problems, "face not recognized")
	}
	if byFinger == nil {
		problems = append(problems, "fingerprint not recognized")
	}
	if byFace != nil && byFinger != nil && byFace.ID != byFinger.ID {
		problems = append(problems, "face and fingerprint belong to different herders")
	}
	if len(problems) > 0 {
		return nil, problems, nil
	}
	return byFace, nil, nil
}

func (s *VerificationService) lookup(ctx context.Context, find func(context.Context, string) (*agro.Herder, error), token string) (*agro.Herder, error) {
	h, err := find(ctx, utils.DigestToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "herder")
	}
	return h, nil
}

func (s *VerificationService) VerifyFace(ctx context.Context, officerID, faceVector string) (*agro.BiometricMatch, error) {
	return s.verifyBiometric(ctx, officerID, agro.VerificationFace, "face_vector", faceVector, s.herders.FindByFaceDigest)
}

func (s *VerificationService) VerifyFingerprint(ctx context.Context, officerID, fingerprintHash string) (*agro.BiometricMatch, error) {
	return s.verifyBiometric(ctx, officerID, agro.VerificationFingerprint, "fingerprint_hash", fingerprintHash, s.herders.FindByFingerprintDigest)
}

func (s *VerificationService) verifyBiometric(
	ctx context.Context,
	officerID string,
	kind agro.VerificationType,
	field, token string,
	find func(context.Context, string) (*agro.Herder, error),
) (*agro.BiometricMatch, error) {
	start := time.Now()
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid("%s required", field)
	}

	herder, err := s.lookup(ctx, find, token)
	if err != nil {
		return nil, err
	}

	match := &agro.BiometricMatch{}
	rec := agro.AuditRecord{
		OfficerID:        optionalString(officerID),
		VerificationType: kind,
		Result:           agro.VerdictFailed,
		RiskLevel:        agro.RiskHigh,
		InputsDigest:     utils.DigestInputs(utils.DigestToken(token)),
	}
	if herder != nil {
		match.Match = true
		match.HerderID = &herder.ID
		match.Herder = herder
		rec.HerderID = &herder.ID
		rec.Result = agro.VerdictVerified
		rec.RiskLevel = agro.RiskLow
	}
	s.record(ctx, rec, time.Since(start))
	return match, nil
}

func (s *VerificationService) VerifyRFID(ctx context.Context, officerID, rfidCode string) (*agro.RFIDMatch, error) {
	start := time.Now()
	rfid := utils.NormalizeRFID(rfidCode)
	if rfid == "" {
		return nil, invalid("rfid_code required")
	}

	rec := agro.AuditRecord{
		OfficerID:        optionalString(officerID),
		VerificationType: agro.VerificationRFID,
		Result:           agro.VerdictFailed,
		RiskLevel:        agro.RiskHigh,
		InputsDigest:     utils.DigestInputs(rfid),
	}

	livestock, err := s.herders.FindLivestockByRFID(ctx, rfid)
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, rec, time.Since(start))
		return &agro.RFIDMatch{}, nil
	}
	if err != nil {
		return nil, storeError(err, "livestock")
	}

	herder, err := s.herders.Get(ctx, livestock.HerderID)
	if err != nil {
		return nil, storeError(err, "herder")
	}

	rec.HerderID = &herder.ID
	rec.Result = agro.VerdictVerified
	rec.RiskLevel = agro.RiskLow
	s.record(ctx, rec, time.Since(start))

	return &agro.RFIDMatch{Match: true, Livestock: livestock, Herder: herder}, nil
}

// record emits the audit record. A lost audit entry is logged, never turned
// into a failed verification.
func (s *VerificationService) record(ctx context.Context, rec agro.AuditRecord, elapsed time.Duration) {
	s.metrics.RecordVerification(string(rec.VerificationType), string(rec.Result), string(rec.RiskLevel), elapsed)
	if s.audit == nil {
		return
	}
	if err := s.audit.Enqueue(ctx, rec); err != nil {
		s.log.Warn().
			Err(err).
			Str("type", string(rec.VerificationType)).
			Msg("failed to enqueue audit record")
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
