package idpmock

import (
	"context"
	"sync"

	"ciddt-registration-backend/internal/identity"
)

var _ identity.Provider = (*Provider)(nil)

// Provider is a function-backed identity.Provider that also records
// which accounts were deleted, for compensation assertions.
type Provider struct {
	mu      sync.Mutex
	Deleted []string

	CreateAccountFn  func(ctx context.Context, email, password string) (*identity.Account, error)
	SetDisplayNameFn func(ctx context.Context, uid, displayName string) error
	DeleteAccountFn  func(ctx context.Context, uid string) error
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	if p.CreateAccountFn != nil {
		return p.CreateAccountFn(ctx, email, password)
	}
	return &identity.Account{UID: "uid-" + email, Email: email}, nil
}

func (p *Provider) SetDisplayName(ctx context.Context, uid, displayName string) error {
	if p.SetDisplayNameFn != nil {
		return p.SetDisplayNameFn(ctx, uid, displayName)
	}
	return nil
}

func (p *Provider) DeleteAccount(ctx context.Context, uid string) error {
	p.mu.Lock()
	p.Deleted = append(p.Deleted, uid)
	p.mu.Unlock()
	if p.DeleteAccountFn != nil {
		return p.DeleteAccountFn(ctx, uid)
	}
	return nil
}

func (p *Provider) DeletedUIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Deleted))
	copy(out, p.Deleted)
	return out
}
