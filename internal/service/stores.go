package service

import (
	"context"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/repository"
)

// HerderStore is the persistence the herder and verification services need.
// *repository.HerderRepository implements it.
type HerderStore interface {
	CreateWithBiometrics(ctx context.Context, herder *agro.Herder, faceDigest, fingerprintDigest string) error
	List(ctx context.Context) ([]agro.Herder, error)
	Get(ctx context.Context, id int64) (*agro.Herder, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*agro.Herder, error)
	FindByFaceDigest(ctx context.Context, digest string) (*agro.Herder, error)
	FindByFingerprintDigest(ctx context.Context, digest string) (*agro.Herder, error)
	Count(ctx context.Context) (int64, error)
	CreateLivestock(ctx context.Context, livestock *agro.Livestock) error
	ListLivestock(ctx context.Context, herderID int64) ([]agro.Livestock, error)
	FindLivestockByRFID(ctx context.Context, rfid string) (*agro.Livestock, error)
	CountLivestock(ctx context.Context) (int64, error)
}

type RouteStore interface {
	ListActive(ctx context.Context) ([]agro.Route, error)
	Get(ctx context.Context, id int64) (*agro.Route, error)
	Create(ctx context.Context, route *agro.Route) error
	UpdateStatus(ctx context.Context, id int64, status string) (*agro.Route, error)
	CountActive(ctx context.Context) (int64, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*repository.User, error)
	Get(ctx context.Context, id string) (*agro.User, error)
	Create(ctx context.Context, user *repository.User) error
}

type AuditStore interface {
	Insert(ctx context.Context, rec agro.AuditRecord) (bool, error)
	Recent(ctx context.Context, limit int) ([]agro.RecentVerification, error)
	Count(ctx context.Context) (int64, error)
}

var (
	_ HerderStore = (*repository.HerderRepository)(nil)
	_ RouteStore  = (*repository.RouteRepository)(nil)
	_ UserStore   = (*repository.UserRepository)(nil)
	_ AuditStore  = (*repository.VerificationRepository)(nil)
)
