package uow

import (
	"context"

	"ciddt-registration-backend/internal/domain/registration"
	"ciddt-registration-backend/internal/domain/user"
)

type Repos struct {
	Registrations registration.Repository
	Users         user.Repository
}

// UnitOfWork runs repository operations inside one transaction so the
// duplicate-request check and the ledger insert commit atomically.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
