package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"agro-herders-service/internal/domain/agro"
)

type HerderRepository struct {
	store
}

func NewHerderRepository(db *gorm.DB, opts Options) *HerderRepository {
	return &HerderRepository{store: newStore(db, opts)}
}

type Herder struct {
	ID            int64  `gorm:"primaryKey"`
	FullName      string `gorm:"not null"`
	Age           int    `gorm:"not null"`
	StateOfOrigin string `gorm:"not null"`
	PhoneNumber   *string
	NationalID    *string
	PhotoURL      *string
	Status        string    `gorm:"not null;default:active"`
	CreatedAt     time.Time `gorm:"index"`
}

type Biometric struct {
	ID                int64  `gorm:"primaryKey"`
	HerderID          int64  `gorm:"not null;uniqueIndex"`
	FaceDigest        string `gorm:"not null;uniqueIndex"`
	FingerprintDigest string `gorm:"not null;uniqueIndex"`
	CreatedAt         time.Time
}

type Livestock struct {
	ID           int64  `gorm:"primaryKey"`
	HerderID     int64  `gorm:"not null;index"`
	RFIDCode     string `gorm:"column:rfid_code;not null;uniqueIndex"`
	AnimalType   string `gorm:"not null;default:cattle"`
	Breed        *string
	AgeYears     *int
	HealthStatus string `gorm:"not null;default:healthy"`
	CreatedAt    time.Time
}

func (Livestock) TableName() string {
	return "livestock"
}

func (h Herder) toDomain() agro.Herder {
	return agro.Herder{
		ID:            h.ID,
		FullName:      h.FullName,
		Age:           h.Age,
		StateOfOrigin: h.StateOfOrigin,
		PhoneNumber:   h.PhoneNumber,
		NationalID:    h.NationalID,
		PhotoURL:      h.PhotoURL,
		Status:        h.Status,
		CreatedAt:     h.CreatedAt,
	}
}

func (l Livestock) toDomain() agro.Livestock {
	return agro.Livestock{
		ID:           l.ID,
		HerderID:     l.HerderID,
		RFIDCode:     l.RFIDCode,
		AnimalType:   l.AnimalType,
		Breed:        l.Breed,
		AgeYears:     l.AgeYears,
		HealthStatus: l.HealthStatus,
	}
}

// CreateWithBiometrics inserts the herder and its biometric digests in one
// transaction.
func (r *HerderRepository) CreateWithBiometrics(ctx context.Context, herder *agro.Herder, faceDigest, fingerprintDigest string) error {
	row := Herder{
		FullName:      herder.FullName,
		Age:           herder.Age,
		StateOfOrigin: herder.StateOfOrigin,
		PhoneNumber:   herder.PhoneNumber,
		NationalID:    herder.NationalID,
		PhotoURL:      herder.PhotoURL,
		Status:        herder.Status,
		CreatedAt:     time.Now().UTC(),
	}

	err := r.write(ctx, "create_herder", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			bio := Biometric{
				HerderID:          row.ID,
				FaceDigest:        faceDigest,
				FingerprintDigest: fingerprintDigest,
				CreatedAt:         row.CreatedAt,
			}
			return tx.Create(&bio).Error
		})
	})
	if err != nil {
		return err
	}

	*herder = row.toDomain()
	return nil
}

func (r *HerderRepository) List(ctx context.Context) ([]agro.Herder, error) {
	var rows []Herder
	err := r.read(ctx, "list_herders", func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	result := make([]agro.Herder, 0, len(rows))
	for _, h := range rows {
		result = append(result, h.toDomain())
	}
	return result, nil
}

func (r *HerderRepository) Get(ctx context.Context, id int64) (*agro.Herder, error) {
	var row Herder
	err := r.read(ctx, "get_herder", func(tx *gorm.DB) error {
		return tx.First(&row, id).Error
	})
	if err != nil {
		return nil, err
	}
	h := row.toDomain()
	return &h, nil
}

func (r *HerderRepository) UpdateStatus(ctx context.Context, id int64, status string) (*agro.Herder, error) {
	err := r.write(ctx, "update_herder_status", func(tx *gorm.DB) error {
		res := tx.Model(&Herder{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *HerderRepository) FindByFaceDigest(ctx context.Context, digest string) (*agro.Herder, error) {
	return r.findByBiometric(ctx, "find_herder_by_face", "biometrics.face_digest = ?", digest)
}

func (r *HerderRepository) FindByFingerprintDigest(ctx context.Context, digest string) (*agro.Herder, error) {
	return r.findByBiometric(ctx, "find_herder_by_fingerprint", "biometrics.fingerprint_digest = ?", digest)
}

func (r *HerderRepository) findByBiometric(ctx context.Context, op, cond, digest string) (*agro.Herder, error) {
	var row Herder
	err := r.read(ctx, op, func(tx *gorm.DB) error {
		return tx.
			Joins("JOIN biometrics ON biometrics.herder_id = herders.id").
			Where(cond, digest).
			First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	h := row.toDomain()
	return &h, nil
}

func (r *HerderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(ctx, "count_herders", func(tx *gorm.DB) error {
		return tx.Model(&Herder{}).Count(&n).Error
	})
	return n, err
}

func (r *HerderRepository) CreateLivestock(ctx context.Context, livestock *agro.Livestock) error {
	row := Livestock{
		HerderID:     livestock.HerderID,
		RFIDCode:     livestock.RFIDCode,
		AnimalType:   livestock.AnimalType,
		Breed:        livestock.Breed,
		AgeYears:     livestock.AgeYears,
		HealthStatus: livestock.HealthStatus,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.write(ctx, "create_livestock", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	}); err != nil {
		return err
	}
	*livestock = row.toDomain()
	return nil
}

func (r *HerderRepository) ListLivestock(ctx context.Context, herderID int64) ([]agro.Livestock, error) {
	var rows []Livestock
	err := r.read(ctx, "list_livestock", func(tx *gorm.DB) error {
		return tx.Where("herder_id = ?", herderID).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	result := make([]agro.Livestock, 0, len(rows))
	for _, l := range rows {
		result = append(result, l.toDomain())
	}
	return result, nil
}

func (r *HerderRepository) FindLivestockByRFID(ctx context.Context, rfid string) (*agro.Livestock, error) {
	var row Livestock
	err := r.read(ctx, "find_livestock_by_rfid", func(tx *gorm.DB) error {
		return tx.Where("rfid_code = ?", rfid).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	l := row.toDomain()
	return &l, nil
}

func (r *HerderRepository) CountLivestock(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(ctx, "count_livestock", func(tx *gorm.DB) error {
		return tx.Model(&Livestock{}).Count(&n).Error
	})
	return n, err
}
