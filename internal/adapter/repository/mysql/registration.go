package mysql

import (
	"context"
	"errors"
	"time"

	regDomain "ciddt-registration-backend/internal/domain/registration"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationRepository struct{ db *gorm.DB }

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) Create(ctx context.Context, t *regDomain.RegistrationToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RegistrationRepository) GetByToken(ctx context.Context, token string) (*regDomain.RegistrationToken, error) {
	var out regDomain.RegistrationToken
	res := r.db.WithContext(ctx).Where("token = ?", token).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, regDomain.ErrNotFound
	}
	return &out, res.Error
}

// GetActiveBySubjectForUpdate takes a FOR UPDATE lock on the subject's
// index range: under REPEATABLE READ a plain read lets two concurrent
// transactions both see "no live row" and both insert. SQLite has no
// FOR UPDATE; its single-writer transactions serialize this anyway.
func (r *RegistrationRepository) GetActiveBySubjectForUpdate(ctx context.Context, subjectID string, now time.Time) (*regDomain.RegistrationToken, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out regDomain.RegistrationToken
	res := q.
		Where("subject_id = ? AND used = ? AND expires_at > ?", subjectID, false, now).
		Order("expires_at DESC, id DESC").
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, regDomain.ErrNotFound
	}
	return &out, res.Error
}

// MarkUsed is the single conditional update closing the redemption
// race: "set used=true where used=false" decides the winner in the
// database, not in a prior read.
func (r *RegistrationRepository) MarkUsed(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&regDomain.RegistrationToken{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]any{"used": true, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Disambiguate: row missing vs already consumed.
		if _, err := r.GetByToken(ctx, token); errors.Is(err, regDomain.ErrNotFound) {
			return regDomain.ErrNotFound
		}
		return regDomain.ErrTokenConsumed
	}
	return nil
}
