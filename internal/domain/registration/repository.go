package registration

import (
	"context"
	"time"
)

type Repository interface {
	// Insert a new ledger row (unique index rejects token reuse).
	Create(ctx context.Context, r *RegistrationToken) error

	// Lookup by the signed token (the ledger's key).
	GetByToken(ctx context.Context, token string) (*RegistrationToken, error)

	// Newest unused, unexpired row for a subject, for the cooldown
	// check. ErrNotFound when no live row exists. Inside a transaction
	// the read locks the subject's rows: two concurrent transactions
	// must not both observe "no live row" and insert.
	GetActiveBySubjectForUpdate(ctx context.Context, subjectID string, now time.Time) (*RegistrationToken, error)

	// MarkUsed flips used=false→true as a single conditional update.
	// It must not be implemented as read-modify-write: under N
	// concurrent calls for the same token exactly one returns nil and
	// the rest return ErrTokenConsumed (ErrNotFound if no row exists).
	MarkUsed(ctx context.Context, token string) error
}
