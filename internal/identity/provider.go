package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Account is a provisioned account at the third-party identity provider.
type Account struct {
	UID   string
	Email string
}

// Provider abstracts the hosted auth service the finalization flow
// talks to. DeleteAccount is the compensating action and must be safe
// to call on a half-created account.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*Account, error)
	SetDisplayName(ctx context.Context, uid, displayName string) error
	DeleteAccount(ctx context.Context, uid string) error
}

// RESTProvider talks to an identity-toolkit style HTTP API: JSON
// bodies, API key as a query parameter.
type RESTProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTProvider(baseURL, apiKey string) *RESTProvider {
	return &RESTProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *RESTProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	var out struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
	}
	err := p.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": false,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &Account{UID: out.LocalID, Email: out.Email}, nil
}

func (p *RESTProvider) SetDisplayName(ctx context.Context, uid, displayName string) error {
	return p.post(ctx, "accounts:update", map[string]any{
		"localId":     uid,
		"displayName": displayName,
	}, nil)
}

func (p *RESTProvider) DeleteAccount(ctx context.Context, uid string) error {
	return p.post(ctx, "accounts:delete", map[string]any{
		"localId": uid,
	}, nil)
}

func (p *RESTProvider) post(ctx context.Context, action string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", p.baseURL, action, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("identity provider %s: status %d: %s", action, res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
