package registration

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("registration token not found")
	// ErrTokenConsumed is returned when the single-use flag was already
	// flipped; the losing side of a concurrent redemption race sees it.
	ErrTokenConsumed      = errors.New("registration token already used")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrNotificationFailed = errors.New("approval notification could not be sent")
)

// PendingError reports that a live approval request already exists for
// the subject. RetryAt tells the caller when a new request is allowed.
type PendingError struct {
	RetryAt time.Time
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("a registration link was already sent; retry after %s", e.RetryAt.Format(time.RFC3339))
}

// Table: registration_tokens — the approval ledger. One row per
// request; rows are never deleted so consumed nonces stay on record.
type RegistrationToken struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectID   string     `gorm:"column:subject_id;size:128;not null;index:idx_registration_tokens_subject"`
	DisplayName string     `gorm:"column:display_name;size:255;not null"`
	Email       string     `gorm:"column:email;size:255;not null"`
	// The signed token is the lookup key; the unique index also
	// guarantees a nonce is never reused across two rows.
	Token     string     `gorm:"column:token;size:512;not null;uniqueIndex:ux_registration_tokens_token"`
	Used      bool       `gorm:"column:used;not null;default:false"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (RegistrationToken) TableName() string { return "registration_tokens" }

// Live reports whether the row still blocks a new request for its subject.
func (r *RegistrationToken) Live(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}
