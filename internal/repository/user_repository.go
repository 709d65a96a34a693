package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agro-herders-service/internal/domain/agro"
)

type UserRepository struct {
	store
}

func NewUserRepository(db *gorm.DB, opts Options) *UserRepository {
	return &UserRepository{store: newStore(db, opts)}
}

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	FullName     string `gorm:"not null"`
	Role         string `gorm:"not null;default:officer"`
	CreatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u User) ToDomain() agro.User {
	return agro.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// FindByEmail returns the stored row including the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var row User
	err := r.read(ctx, "find_user_by_email", func(tx *gorm.DB) error {
		return tx.Where("email = ?", email).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*agro.User, error) {
	var row User
	err := r.read(ctx, "get_user", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	u := row.ToDomain()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return r.write(ctx, "create_user", func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
}
