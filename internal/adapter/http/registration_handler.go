package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	regDomain "ciddt-registration-backend/internal/domain/registration"
	"ciddt-registration-backend/internal/token"
	ucRegistration "ciddt-registration-backend/internal/usecase/registration"
	ucSignup "ciddt-registration-backend/internal/usecase/signup"

	"github.com/labstack/echo/v4"
)

// All token-rejection causes map to this one reply so the endpoint
// does not reveal which tokens exist, expired, or were spent. The
// precise cause goes to the server log only.
const genericTokenError = "invalid or expired token"

type RegistrationHandler struct {
	approvals *ucRegistration.Usecase
	signup    *ucSignup.Usecase
}

func NewRegistrationHandler(approvals *ucRegistration.Usecase, signup *ucSignup.Usecase) *RegistrationHandler {
	return &RegistrationHandler{approvals: approvals, signup: signup}
}

type verifyUserReq struct {
	UserID string `json:"user_id" validate:"required,subjectid"`
	Name   string `json:"name"    validate:"required,max=255"`
	Email  string `json:"email"   validate:"required,email"`
	// Provisional identity-provider account the caller signed in
	// with; discarded once the approval request is recorded.
	ProviderUID string `json:"provider_uid" validate:"omitempty,max=255"`
}

type pendingResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
}

// VerifyUser handles POST /verify-user: record the approval request,
// mail the administrator a redemption link, and discard the caller's
// provisional identity-provider account if one was passed.
func (h *RegistrationHandler) VerifyUser(c echo.Context) error {
	var req verifyUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.signup.RequestAccess(c.Request().Context(), ucSignup.RequestAccessInput{
		SubjectID:   req.UserID,
		DisplayName: req.Name,
		Email:       req.Email,
		ProviderUID: req.ProviderUID,
	})
	if err != nil {
		var pending *regDomain.PendingError
		switch {
		case errors.Is(err, regDomain.ErrAlreadyRegistered):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "user already exists"})
		case errors.As(err, &pending):
			return c.JSON(http.StatusBadRequest, pendingResponse{
				Message: "a registration link was already sent; please wait before requesting another",
				Date:    pending.RetryAt.UTC().Format(time.RFC3339),
			})
		case errors.Is(err, regDomain.ErrNotificationFailed):
			return c.JSON(http.StatusBadGateway, map[string]string{"message": "could not send approval mail, try again later"})
		default:
			log.Printf("verify-user %s: %v", req.UserID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		}
	}
	return c.JSON(http.StatusOK, dto)
}

// Redeem handles GET /registro?token=...: verify and consume the token.
func (h *RegistrationHandler) Redeem(c echo.Context) error {
	signed := c.QueryParam("token")
	if signed == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing token query param"})
	}

	dto, err := h.approvals.Verify(c.Request().Context(), signed)
	if err != nil {
		return h.tokenFailure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "token accepted, registration may proceed",
		"user_id": dto.SubjectID,
	})
}

type completeSignupReq struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

// CompleteSignup handles POST /registro?token=...: verify, consume, and
// finalize the account end to end.
func (h *RegistrationHandler) CompleteSignup(c echo.Context) error {
	signed := c.QueryParam("token")
	if signed == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing token query param"})
	}
	var req completeSignupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.signup.CompleteSignup(c.Request().Context(), ucSignup.CompleteInput{
		Token:    signed,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ucSignup.ErrPrincipalExists) {
			return c.JSON(http.StatusConflict, map[string]string{"message": "user already exists"})
		}
		return h.tokenFailure(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RegistrationHandler) tokenFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrInvalidSignature),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, regDomain.ErrNotFound),
		errors.Is(err, regDomain.ErrTokenConsumed):
		// replay and tamper attempts are security-relevant
		log.Printf("token redemption rejected: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": genericTokenError})
	default:
		log.Printf("token redemption failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
	}
}
