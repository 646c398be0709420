package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	regDomain "ciddt-registration-backend/internal/domain/registration"
	"ciddt-registration-backend/internal/domain/uow"
	userDomain "ciddt-registration-backend/internal/domain/user"
	"ciddt-registration-backend/internal/mailer"
	"ciddt-registration-backend/internal/token"
	"ciddt-registration-backend/pkg/id"
)

// Options carries the process-wide settings the approval flow needs;
// loaded once at startup and passed in, never read from globals.
type Options struct {
	// Public base URL the approval link is built on.
	BaseURL string
	// Administrator mailbox receiving approval requests.
	AdminEmail string
}

// Usecase is the approval state machine: duplicate detection, cooldown,
// token issuance, ledger persistence, notification dispatch, and later
// single-use verification.
type Usecase struct {
	uow   uow.UnitOfWork
	codec *token.Codec
	mail  mailer.Sender
	opts  Options
}

func NewUsecase(tx uow.UnitOfWork, codec *token.Codec, mail mailer.Sender, opts Options) *Usecase {
	return &Usecase{uow: tx, codec: codec, mail: mail, opts: opts}
}

// RequestApproval records an approval request for a subject and mails
// the administrator a redemption link.
//
// The ledger write commits before the notification goes out: a crash
// between the two leaves a recoverable pending row rather than a
// delivered link with nothing to redeem. For the same reason a failed
// dispatch does NOT roll the row back — the caller gets
// ErrNotificationFailed and retries are gated by the cooldown.
func (u *Usecase) RequestApproval(ctx context.Context, in RequestInput) (*RequestDTO, error) {
	var entry *regDomain.RegistrationToken

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		now := time.Now().UTC()

		if _, err := r.Users.GetBySubjectID(ctx, in.SubjectID); err == nil {
			return regDomain.ErrAlreadyRegistered
		} else if !errors.Is(err, userDomain.ErrNotFound) {
			return err
		}

		// Cooldown: a live row blocks a new request until it expires.
		// The locking read keeps two concurrent requests for one
		// subject from both passing this check.
		if live, err := r.Registrations.GetActiveBySubjectForUpdate(ctx, in.SubjectID, now); err == nil {
			return &regDomain.PendingError{RetryAt: live.ExpiresAt}
		} else if !errors.Is(err, regDomain.ErrNotFound) {
			return err
		}

		signed, expiresAt, err := u.codec.Issue(in.SubjectID, id.NewID32())
		if err != nil {
			return err
		}
		entry = &regDomain.RegistrationToken{
			SubjectID:   in.SubjectID,
			DisplayName: in.DisplayName,
			Email:       in.Email,
			Token:       signed,
			Used:        false,
			ExpiresAt:   expiresAt,
		}
		return r.Registrations.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	link := mailer.ApprovalLink(u.opts.BaseURL, entry.Token)
	msg := mailer.ApprovalMessage(u.opts.AdminEmail, in.DisplayName, in.SubjectID, in.Email, link)
	if err := u.mail.Send(ctx, msg); err != nil {
		log.Printf("approval mail for subject %s failed: %v", in.SubjectID, err)
		return nil, fmt.Errorf("%w: %v", regDomain.ErrNotificationFailed, err)
	}

	return &RequestDTO{
		Message:   "approval request sent; an administrator will review it",
		ExpiresAt: entry.ExpiresAt,
	}, nil
}

// Verify checks a redemption token and consumes it. Exactly one of N
// concurrent calls for the same token succeeds; the rest observe
// ErrTokenConsumed through the conditional MarkUsed update.
func (u *Usecase) Verify(ctx context.Context, signed string) (*VerifyDTO, error) {
	// The token itself is authoritative for signature and expiry;
	// the ledger only supplies the single-use state and request data.
	claims, err := u.codec.Parse(signed)
	if err != nil {
		return nil, err
	}

	var dto *VerifyDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		entry, err := r.Registrations.GetByToken(ctx, signed)
		if err != nil {
			return err
		}
		if err := r.Registrations.MarkUsed(ctx, signed); err != nil {
			return err
		}
		dto = &VerifyDTO{
			SubjectID:   claims.SubjectID,
			DisplayName: entry.DisplayName,
			Email:       entry.Email,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
