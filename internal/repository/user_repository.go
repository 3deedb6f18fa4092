package repository

import (
	"context"

	"portal-service/internal/model"

	"gorm.io/gorm"
)

// UserRepository reads the shared user table. The table is owned by an
// external provisioning flow; there are no writes here.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns the user with the given email, or
// gorm.ErrRecordNotFound when no row matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
