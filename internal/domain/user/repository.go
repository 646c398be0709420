package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error

	// GetBySubjectID returns ErrNotFound when no principal exists.
	GetBySubjectID(ctx context.Context, subjectID string) (*User, error)

	// DeleteBySubjectID removes a principal row; used by the
	// finalization compensation path.
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}
