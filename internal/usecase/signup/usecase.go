package signup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ciddt-registration-backend/internal/domain/uow"
	userDomain "ciddt-registration-backend/internal/domain/user"
	"ciddt-registration-backend/internal/identity"
	ucRegistration "ciddt-registration-backend/internal/usecase/registration"
)

var ErrPrincipalExists = errors.New("principal already exists")

// Usecase drives the two multi-step account flows around the approval
// service: asking for access (which discards the provisional
// identity-provider account) and completing signup after an
// administrator redeemed the approval link.
type Usecase struct {
	approvals *ucRegistration.Usecase
	idp       identity.Provider
	uow       uow.UnitOfWork
}

func NewUsecase(approvals *ucRegistration.Usecase, idp identity.Provider, tx uow.UnitOfWork) *Usecase {
	return &Usecase{approvals: approvals, idp: idp, uow: tx}
}

type RequestAccessInput struct {
	SubjectID   string
	DisplayName string
	Email       string
	// Account id of the provisional identity-provider session the
	// subject logged in with. Always discarded: administrator
	// approval, not provider-side account creation, is the gate.
	ProviderUID string
}

// RequestAccess registers interest in an account. Whatever the
// approval call returns, the provisional provider account is deleted
// best-effort; a failed deletion is logged and never fails the flow.
func (u *Usecase) RequestAccess(ctx context.Context, in RequestAccessInput) (*ucRegistration.RequestDTO, error) {
	dto, reqErr := u.approvals.RequestApproval(ctx, ucRegistration.RequestInput{
		SubjectID:   in.SubjectID,
		DisplayName: in.DisplayName,
		Email:       in.Email,
	})

	if in.ProviderUID != "" {
		if err := u.idp.DeleteAccount(ctx, in.ProviderUID); err != nil {
			log.Printf("could not delete provisional account %s: %v", in.ProviderUID, err)
		}
	}

	if reqErr != nil {
		return nil, reqErr
	}
	return dto, nil
}

type CompleteInput struct {
	Token    string
	Username string
	Email    string
	Password string
}

type CompleteDTO struct {
	SubjectID   string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

// CompleteSignup redeems an approval token and finalizes the account.
// The identity-provider account is created only after Verify succeeds,
// so a rejected token never leaves anything to clean up. If a step
// after account creation fails, the account is deleted again
// (compensation) and the step's error is returned.
func (u *Usecase) CompleteSignup(ctx context.Context, in CompleteInput) (*CompleteDTO, error) {
	approved, err := u.approvals.Verify(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	acct, err := u.idp.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return nil, fmt.Errorf("create identity account: %w", err)
	}

	finalize := func() error {
		if approved.DisplayName != "" {
			if err := u.idp.SetDisplayName(ctx, acct.UID, approved.DisplayName); err != nil {
				return fmt.Errorf("set display name: %w", err)
			}
		}
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			if _, err := r.Users.GetBySubjectID(ctx, approved.SubjectID); err == nil {
				return ErrPrincipalExists
			} else if !errors.Is(err, userDomain.ErrNotFound) {
				return err
			}
			return r.Users.Create(ctx, &userDomain.User{
				SubjectID:   approved.SubjectID,
				Username:    in.Username,
				Email:       in.Email,
				DisplayName: approved.DisplayName,
				ProviderUID: acct.UID,
			})
		})
	}

	if err := finalize(); err != nil {
		if delErr := u.idp.DeleteAccount(ctx, acct.UID); delErr != nil {
			log.Printf("compensating delete of account %s failed: %v", acct.UID, delErr)
		}
		return nil, err
	}

	return &CompleteDTO{
		SubjectID:   approved.SubjectID,
		DisplayName: approved.DisplayName,
		Message:     "registration complete; you can now sign in",
	}, nil
}
