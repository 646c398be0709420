package regmock

import (
	"context"
	"time"

	domain "ciddt-registration-backend/internal/domain/registration"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Fill in the function fields a test needs; unfilled lookups report
// ErrNotFound and unfilled writes succeed.
type Repo struct {
	CreateFn                      func(ctx context.Context, r *domain.RegistrationToken) error
	GetByTokenFn                  func(ctx context.Context, token string) (*domain.RegistrationToken, error)
	GetActiveBySubjectForUpdateFn func(ctx context.Context, subjectID string, now time.Time) (*domain.RegistrationToken, error)
	MarkUsedFn                    func(ctx context.Context, token string) error
}

func (m *Repo) Create(ctx context.Context, r *domain.RegistrationToken) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetByToken(ctx context.Context, token string) (*domain.RegistrationToken, error) {
	if m.GetByTokenFn != nil {
		return m.GetByTokenFn(ctx, token)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetActiveBySubjectForUpdate(ctx context.Context, subjectID string, now time.Time) (*domain.RegistrationToken, error) {
	if m.GetActiveBySubjectForUpdateFn != nil {
		return m.GetActiveBySubjectForUpdateFn(ctx, subjectID, now)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) MarkUsed(ctx context.Context, token string) error {
	if m.MarkUsedFn != nil {
		return m.MarkUsedFn(ctx, token)
	}
	return nil
}
