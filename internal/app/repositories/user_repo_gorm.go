package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/neighborly/go-neighborhood-api/internal/domain/user"
)

// userRecord is the GORM mapping for accounts.
type userRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;default:''"`
	Phone     string `gorm:"not null;default:''"`
	Address   string `gorm:"not null;default:''"`
	APIToken  string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (userRecord) TableName() string { return "users" }

type gormUserRepo struct {
	db *gorm.DB
}

// NewGormUserRepo builds a user repository backed by GORM.
func NewGormUserRepo(db *gorm.DB) (UserRepository, error) {
	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, err
	}
	return &gormUserRepo{db: db}, nil
}

func (r *gormUserRepo) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(toUserRecord(u)).Error
}

func (r *gormUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromUserRecord(&rec), nil
}

func (r *gormUserRepo) GetByAPIToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	var rec userRecord
	err := r.db.WithContext(ctx).First(&rec, "api_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromUserRecord(&rec), nil
}

func (r *gormUserRepo) Update(ctx context.Context, u *user.User) error {
	res := r.db.WithContext(ctx).Model(&userRecord{ID: u.ID}).Updates(map[string]any{
		"name":      u.Name,
		"email":     u.Contact.Email,
		"phone":     u.Contact.Phone,
		"address":   u.Contact.Address,
		"api_token": u.APIToken,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Delete(&userRecord{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func toUserRecord(u *user.User) *userRecord {
	return &userRecord{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Contact.Email,
		Phone:     u.Contact.Phone,
		Address:   u.Contact.Address,
		APIToken:  u.APIToken,
		CreatedAt: u.CreatedAt,
	}
}

func fromUserRecord(rec *userRecord) *user.User {
	return &user.User{
		ID:        rec.ID,
		Name:      rec.Name,
		Contact:   user.Contact{Email: rec.Email, Phone: rec.Phone, Address: rec.Address},
		APIToken:  rec.APIToken,
		CreatedAt: rec.CreatedAt,
	}
}
