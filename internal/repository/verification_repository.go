package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agro-herders-service/internal/domain/agro"
)

type VerificationRepository struct {
	store
}

func NewVerificationRepository(db *gorm.DB, opts Options) *VerificationRepository {
	return &VerificationRepository{store: newStore(db, opts)}
}

type Verification struct {
	ID               int64   `gorm:"primaryKey"`
	IdempotencyKey   string  `gorm:"not null;uniqueIndex"`
	HerderID         *int64  `gorm:"index"`
	OfficerID        *string `gorm:"type:uuid"`
	VerificationType string  `gorm:"not null"`
	Result           string  `gorm:"not null"`
	RiskLevel        string  `gorm:"not null"`
	InputsDigest     string  `gorm:"not null"`
	LocationLat      *float64
	LocationLng      *float64
	CreatedAt        time.Time `gorm:"index"`
}

// Insert writes an audit record. A second insert with the same idempotency
// key is a no-op and reports inserted=false.
func (r *VerificationRepository) Insert(ctx context.Context, rec agro.AuditRecord) (bool, error) {
	row := Verification{
		IdempotencyKey:   rec.IdempotencyKey,
		HerderID:         rec.HerderID,
		OfficerID:        rec.OfficerID,
		VerificationType: string(rec.VerificationType),
		Result:           string(rec.Result),
		RiskLevel:        string(rec.RiskLevel),
		InputsDigest:     rec.InputsDigest,
		LocationLat:      rec.LocationLat,
		LocationLng:      rec.LocationLng,
		CreatedAt:        rec.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var inserted bool
	err := r.write(ctx, "insert_verification", func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(&row)
		inserted = res.RowsAffected > 0
		return res.Error
	})
	return inserted, err
}

type recentRow struct {
	ID               int64
	VerificationType string
	Result           string
	RiskLevel        string
	CreatedAt        time.Time
	HerderName       *string
	OfficerName      *string
}

func (r *VerificationRepository) Recent(ctx context.Context, limit int) ([]agro.RecentVerification, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var rows []recentRow
	err := r.read(ctx, "recent_verifications", func(tx *gorm.DB) error {
		return tx.
			Table("verifications AS v").
			Select("v.id, v.verification_type, v.result, v.risk_level, v.created_at, h.full_name AS herder_name, u.full_name AS officer_name").
			Joins("LEFT JOIN herders h ON v.herder_id = h.id").
			Joins("LEFT JOIN users u ON v.officer_id = u.id").
			Order("v.created_at DESC").
			Order("v.id DESC").
			Limit(limit).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	result := make([]agro.RecentVerification, 0, len(rows))
	for _, row := range rows {
		item := agro.RecentVerification{
			ID:               row.ID,
			VerificationType: row.VerificationType,
			Result:           row.Result,
			RiskLevel:        row.RiskLevel,
			CreatedAt:        row.CreatedAt,
		}
		if row.HerderName != nil {
			item.Herders = &agro.NameRef{FullName: *row.HerderName}
		}
		if row.OfficerName != nil {
			item.Users = &agro.NameRef{FullName: *row.OfficerName}
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *VerificationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(ctx, "count_verifications", func(tx *gorm.DB) error {
		return tx.Model(&Verification{}).Count(&n).Error
	})
	return n, err
}

// Models lists every table model, for AutoMigrate in tests and tools.
func Models() []any {
	return []any{&User{}, &Herder{}, &Biometric{}, &Livestock{}, &Route{}, &Verification{}}
}
