package agro

import (
	"encoding/json"
	"time"
)

const (
	HerderStatusActive   = "active"
	HerderStatusInactive = "inactive"

	RouteStatusActive = "active"

	HealthHealthy = "healthy"

	DefaultAnimalType = "cattle"
)

type Verdict string

const (
	VerdictVerified   Verdict = "verified"
	VerdictSuspicious Verdict = "suspicious"
	VerdictFailed     Verdict = "failed"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type VerificationType string

const (
	VerificationFull        VerificationType = "full"
	VerificationFace        VerificationType = "face"
	VerificationFingerprint VerificationType = "fingerprint"
	VerificationRFID        VerificationType = "rfid"
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type Herder struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	Age           int       `json:"age"`
	StateOfOrigin string    `json:"state_of_origin"`
	PhoneNumber   *string   `json:"phone_number"`
	NationalID    *string   `json:"national_id"`
	PhotoURL      *string   `json:"photo_url"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type Livestock struct {
	ID           int64   `json:"id"`
	HerderID     int64   `json:"herder_id"`
	RFIDCode     string  `json:"rfid_code"`
	AnimalType   string  `json:"animal_type"`
	Breed        *string `json:"breed"`
	AgeYears     *int    `json:"age_years"`
	HealthStatus string  `json:"health_status"`
}

// Route is an approved grazing corridor. GeoJSONData holds a GeoJSON Polygon
// or MultiPolygon with [lng, lat] coordinates.
type Route struct {
	ID          int64           `json:"id"`
	RouteName   string          `json:"route_name"`
	State       string          `json:"state"`
	GeoJSONData json.RawMessage `json:"geojson_data"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type HerderRegistration struct {
	FullName        string  `json:"full_name"`
	Age             int     `json:"age"`
	StateOfOrigin   string  `json:"state_of_origin"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	NationalID      *string `json:"national_id,omitempty"`
	PhotoURL        *string `json:"photo_url,omitempty"`
	FaceVector      string  `json:"face_vector"`
	FingerprintHash string  `json:"fingerprint_hash"`
}

type LivestockRegistration struct {
	HerderID     int64   `json:"herder_id"`
	RFIDCode     string  `json:"rfid_code"`
	AnimalType   string  `json:"animal_type"`
	Breed        *string `json:"breed,omitempty"`
	AgeYears     *int    `json:"age_years,omitempty"`
	HealthStatus string  `json:"health_status,omitempty"`
}

type RouteCreate struct {
	RouteName   string          `json:"route_name"`
	State       string          `json:"state"`
	GeoJSONData json.RawMessage `json:"geojson_data"`
	Status      string          `json:"status,omitempty"`
}

type FullVerificationRequest struct {
	FaceVector      string   `json:"face_vector"`
	FingerprintHash string   `json:"fingerprint_hash"`
	RFIDCode        string   `json:"rfid_code"`
	LocationLat     *float64 `json:"location_lat,omitempty"`
	LocationLng     *float64 `json:"location_lng,omitempty"`
}

// Signals reports which checks passed. Location is nil when no position was
// supplied.
type Signals struct {
	Identity  bool  `json:"identity"`
	Livestock bool  `json:"livestock"`
	Location  *bool `json:"location"`
}

type VerificationResult struct {
	Status    Verdict     `json:"status"`
	RiskLevel RiskLevel   `json:"risk_level"`
	Herder    *Herder     `json:"herder"`
	Livestock []Livestock `json:"livestock"`
	Message   string      `json:"message"`
	Signals   Signals     `json:"signals"`
}

type BiometricMatch struct {
	Match    bool    `json:"match"`
	HerderID *int64  `json:"herder_id"`
	Herder   *Herder `json:"herder"`
}

type RFIDMatch struct {
	Match     bool       `json:"match"`
	Livestock *Livestock `json:"livestock"`
	Herder    *Herder    `json:"herder"`
}

type LocationCheck struct {
	Authorized bool    `json:"authorized"`
	Message    string  `json:"message"`
	Routes     []Route `json:"routes"`
}

// AuditRecord is one entry of the verification trail. It never carries raw
// biometric tokens, only InputsDigest.
type AuditRecord struct {
	IdempotencyKey   string
	HerderID         *int64
	OfficerID        *string
	VerificationType VerificationType
	Result           Verdict
	RiskLevel        RiskLevel
	InputsDigest     string
	LocationLat      *float64
	LocationLng      *float64
	CreatedAt        time.Time
}

type NameRef struct {
	FullName string `json:"full_name"`
}

type RecentVerification struct {
	ID               int64     `json:"id"`
	VerificationType string    `json:"verification_type"`
	Result           string    `json:"result"`
	RiskLevel        string    `json:"risk_level"`
	CreatedAt        time.Time `json:"created_at"`
	Herders          *NameRef  `json:"herders"`
	Users            *NameRef  `json:"users"`
}

type DashboardStats struct {
	TotalHerders        int64                `json:"total_herders"`
	TotalLivestock      int64                `json:"total_livestock"`
	ActiveRoutes        int64                `json:"active_routes"`
	TotalVerifications  int64                `json:"total_verifications"`
	RecentVerifications []RecentVerification `json:"recent_verifications"`
}
