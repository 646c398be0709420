package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	regDomain "ciddt-registration-backend/internal/domain/registration"
	"ciddt-registration-backend/internal/domain/uow"
	userDomain "ciddt-registration-backend/internal/domain/user"
	"ciddt-registration-backend/internal/mailer"
	"ciddt-registration-backend/internal/testutil/idpmock"
	"ciddt-registration-backend/internal/testutil/mailmock"
	"ciddt-registration-backend/internal/testutil/regmock"
	"ciddt-registration-backend/internal/testutil/usermock"
	"ciddt-registration-backend/internal/testutil/uowmock"
	"ciddt-registration-backend/internal/token"
	ucRegistration "ciddt-registration-backend/internal/usecase/registration"
	ucSignup "ciddt-registration-backend/internal/usecase/signup"

	"github.com/labstack/echo/v4"
)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	return e
}

func mustJSON(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func newHandler(regs regDomain.Repository, users userDomain.Repository, mail *mailmock.Sender) *RegistrationHandler {
	return newHandlerWithProvider(regs, users, mail, &idpmock.Provider{})
}

func newHandlerWithProvider(regs regDomain.Repository, users userDomain.Repository, mail *mailmock.Sender, idp *idpmock.Provider) *RegistrationHandler {
	codec := token.NewCodec("test-secret", time.Hour)
	tx := uowmock.Passthrough(uow.Repos{Registrations: regs, Users: users})
	approvals := ucRegistration.NewUsecase(tx, codec, mail, ucRegistration.Options{
		BaseURL:    "https://example.com",
		AdminEmail: "admin@example.com",
	})
	signup := ucSignup.NewUsecase(approvals, idp, tx)
	return NewRegistrationHandler(approvals, signup)
}

const testSubject = "zK9qX2pL7mN4vB8cD1fG5hJ3sW6t"

func TestVerifyUser_Success(t *testing.T) {
	e := newEchoWithValidator()
	mail := &mailmock.Sender{}
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, mail)

	body := map[string]any{
		"user_id": testSubject,
		"name":    "Jane Doe",
		"email":   "jane@example.com",
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var dto ucRegistration.RequestDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.Message == "" {
		t.Fatal("expected message in response")
	}
	if mail.Count() != 1 {
		t.Fatalf("mail count = %d, want 1", mail.Count())
	}
}

func TestVerifyUser_DiscardsProvisionalAccount(t *testing.T) {
	e := newEchoWithValidator()
	mail := &mailmock.Sender{}
	idp := &idpmock.Provider{}
	h := newHandlerWithProvider(&regmock.Repo{}, &usermock.Repo{}, mail, idp)

	body := map[string]any{
		"user_id":      testSubject,
		"name":         "Jane Doe",
		"email":        "jane@example.com",
		"provider_uid": "prov-123",
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if mail.Count() != 1 {
		t.Fatalf("mail count = %d, want 1", mail.Count())
	}
	// the provisional sign-in account must be gone once the request
	// is recorded; approval, not account creation, is the gate
	if got := idp.DeletedUIDs(); len(got) != 1 || got[0] != "prov-123" {
		t.Fatalf("deleted accounts = %v, want [prov-123]", got)
	}
}

func TestVerifyUser_NoProviderAccountNothingDeleted(t *testing.T) {
	e := newEchoWithValidator()
	idp := &idpmock.Provider{}
	h := newHandlerWithProvider(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{}, idp)

	body := map[string]any{"user_id": testSubject, "name": "Jane", "email": "j@e.com"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := idp.DeletedUIDs(); len(got) != 0 {
		t.Fatalf("nothing should be deleted without a provider uid, got %v", got)
	}
}

func TestVerifyUser_ValidationFailed(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{})

	body := map[string]any{"user_id": "x", "name": "", "email": "nope"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "validation failed" || len(er.Details) == 0 {
		t.Fatalf("unexpected error payload: %+v", er)
	}
}

func TestVerifyUser_AlreadyRegistered(t *testing.T) {
	e := newEchoWithValidator()
	users := &usermock.Repo{
		GetBySubjectIDFn: func(ctx context.Context, subjectID string) (*userDomain.User, error) {
			return &userDomain.User{SubjectID: subjectID}, nil
		},
	}
	h := newHandler(&regmock.Repo{}, users, &mailmock.Sender{})

	body := map[string]any{"user_id": testSubject, "name": "Jane", "email": "j@e.com"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already exists") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestVerifyUser_PendingCarriesRetryDate(t *testing.T) {
	e := newEchoWithValidator()
	retryAt := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	regs := &regmock.Repo{
		GetActiveBySubjectForUpdateFn: func(ctx context.Context, subjectID string, now time.Time) (*regDomain.RegistrationToken, error) {
			return &regDomain.RegistrationToken{SubjectID: subjectID, ExpiresAt: retryAt}, nil
		},
	}
	h := newHandler(regs, &usermock.Repo{}, &mailmock.Sender{})

	body := map[string]any{"user_id": testSubject, "name": "Jane", "email": "j@e.com"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp pendingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	got, err := time.Parse(time.RFC3339, resp.Date)
	if err != nil {
		t.Fatalf("date not RFC3339: %q", resp.Date)
	}
	if !got.Equal(retryAt) {
		t.Fatalf("date = %v, want %v", got, retryAt)
	}
}

func TestRedeem_SuccessThenConsumed(t *testing.T) {
	e := newEchoWithValidator()
	codec := token.NewCodec("test-secret", time.Hour)
	signed, expiresAt, err := codec.Issue(testSubject, "nonce")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	used := false
	regs := &regmock.Repo{
		GetByTokenFn: func(ctx context.Context, tok string) (*regDomain.RegistrationToken, error) {
			if tok != signed {
				return nil, regDomain.ErrNotFound
			}
			return &regDomain.RegistrationToken{SubjectID: testSubject, DisplayName: "Jane", Token: signed, Used: used, ExpiresAt: expiresAt}, nil
		},
		MarkUsedFn: func(ctx context.Context, tok string) error {
			if used {
				return regDomain.ErrTokenConsumed
			}
			used = true
			return nil
		},
	}
	h := newHandler(regs, &usermock.Repo{}, &mailmock.Sender{})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(stdhttp.MethodGet, "/registro?token="+signed, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := h.Redeem(c); err != nil {
			t.Fatalf("Redeem error: %v", err)
		}
		return rec
	}

	rec := do()
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("first redeem status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var ok map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &ok)
	if ok["user_id"] != testSubject {
		t.Fatalf("user_id = %q", ok["user_id"])
	}

	rec = do()
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), genericTokenError) {
		t.Fatalf("replay must use the generic message, got %s", rec.Body.String())
	}
}

func TestRedeem_GenericMessageForAllTokenFailures(t *testing.T) {
	e := newEchoWithValidator()
	codec := token.NewCodec("test-secret", time.Hour)

	expiredCodec := token.NewCodec("test-secret", -time.Minute)
	expired, _, _ := expiredCodec.Issue(testSubject, "n")
	unknown, _, _ := codec.Issue("someone-else-entirely", "n")

	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{})

	// expired, tampered, malformed, unknown: one indistinguishable reply
	for name, tok := range map[string]string{
		"expired":   expired,
		"malformed": "not-a-token",
		"tampered":  unknown[:len(unknown)-2] + "xx",
		"unknown":   unknown,
	} {
		req := httptest.NewRequest(stdhttp.MethodGet, "/registro?token="+tok, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := h.Redeem(c); err != nil {
			t.Fatalf("%s: Redeem error: %v", name, err)
		}
		if rec.Code != stdhttp.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, rec.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["message"] != genericTokenError {
			t.Fatalf("%s: message = %q, want %q", name, body["message"], genericTokenError)
		}
	}
}

func TestRedeem_MissingToken(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{})

	req := httptest.NewRequest(stdhttp.MethodGet, "/registro", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Redeem(c); err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCompleteSignup_EndToEnd(t *testing.T) {
	e := newEchoWithValidator()
	codec := token.NewCodec("test-secret", time.Hour)
	signed, expiresAt, err := codec.Issue(testSubject, "nonce")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	used := false
	regs := &regmock.Repo{
		GetByTokenFn: func(ctx context.Context, tok string) (*regDomain.RegistrationToken, error) {
			return &regDomain.RegistrationToken{
				SubjectID: testSubject, DisplayName: "Jane Doe", Email: "jane@example.com",
				Token: signed, Used: used, ExpiresAt: expiresAt,
			}, nil
		},
		MarkUsedFn: func(ctx context.Context, tok string) error {
			if used {
				return regDomain.ErrTokenConsumed
			}
			used = true
			return nil
		},
	}
	var createdUser *userDomain.User
	users := &usermock.Repo{
		CreateFn: func(ctx context.Context, u *userDomain.User) error {
			createdUser = u
			return nil
		},
	}
	h := newHandler(regs, users, &mailmock.Sender{})

	body := map[string]any{"username": "jane", "email": "jane@example.com", "password": "hunter22"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/registro?token="+signed, mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CompleteSignup(c); err != nil {
		t.Fatalf("CompleteSignup error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if createdUser == nil || createdUser.SubjectID != testSubject || createdUser.DisplayName != "Jane Doe" {
		t.Fatalf("principal not finalized correctly: %+v", createdUser)
	}
}

func TestCompleteSignup_WeakPasswordRejected(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{})

	body := map[string]any{"username": "jane", "email": "jane@example.com", "password": "short"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/registro?token=whatever", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CompleteSignup(c); err != nil {
		t.Fatalf("CompleteSignup error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestVerifyUser_BindError(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, &mailmock.Sender{})

	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", strings.NewReader(`{"user_id":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyUser_NotificationFailedMapping(t *testing.T) {
	e := newEchoWithValidator()
	mail := &mailmock.Sender{}
	mail.SendFn = func(ctx context.Context, m mailer.Message) error { return errors.New("smtp down") }
	h := newHandler(&regmock.Repo{}, &usermock.Repo{}, mail)

	body := map[string]any{"user_id": testSubject, "name": "Jane", "email": "j@e.com"}
	req := httptest.NewRequest(stdhttp.MethodPost, "/verify-user", mustJSON(t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyUser(c); err != nil {
		t.Fatalf("VerifyUser error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
