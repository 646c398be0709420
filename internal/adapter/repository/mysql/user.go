package mysql

import (
	"context"
	"errors"

	userDomain "ciddt-registration-backend/internal/domain/user"

	"gorm.io/gorm"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetBySubjectID(ctx context.Context, subjectID string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, userDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *UserRepository) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Delete(&userDomain.User{}).Error
}
