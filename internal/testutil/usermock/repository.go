package usermock

import (
	"context"

	domain "ciddt-registration-backend/internal/domain/user"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn            func(ctx context.Context, u *domain.User) error
	GetBySubjectIDFn    func(ctx context.Context, subjectID string) (*domain.User, error)
	DeleteBySubjectIDFn func(ctx context.Context, subjectID string) error
}

func (m *Repo) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *Repo) GetBySubjectID(ctx context.Context, subjectID string) (*domain.User, error) {
	if m.GetBySubjectIDFn != nil {
		return m.GetBySubjectIDFn(ctx, subjectID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	if m.DeleteBySubjectIDFn != nil {
		return m.DeleteBySubjectIDFn(ctx, subjectID)
	}
	return nil
}
