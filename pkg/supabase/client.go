package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"ura-backend/internal/domain"
)

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth: status %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match client errors with domain.ErrAuthRejected.
func (e *APIError) Unwrap() error {
	if e.Status >= 400 && e.Status < 500 {
		return domain.ErrAuthRejected
	}
	return nil
}

// Client talks to the GoTrue REST API of a Supabase project.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient expects the project URL without trailing slash.
func NewClient(projectURL, anonKey string) *Client {
	return &Client{
		baseURL: projectURL + "/auth/v1",
		apiKey:  anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ domain.AuthProvider = (*Client)(nil)

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *userPayload `json:"user"`
}

func (s *sessionPayload) toSession() *domain.Session {
	out := &domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
	if s.User != nil {
		out.User = domain.AuthUser{ID: s.User.ID, Email: s.User.Email}
	}
	return out
}

// SignUp registers a password user. When the project requires email
// confirmation GoTrue answers with the bare user and no session.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*domain.AuthUser, *domain.Session, error) {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}

	var raw json.RawMessage
	err := c.do(ctx, http.MethodPost, "/signup", q, "", map[string]interface{}{
		"email":    email,
		"password": password,
	}, &raw)
	if err != nil {
		return nil, nil, err
	}

	var sess sessionPayload
	if err := json.Unmarshal(raw, &sess); err == nil && sess.AccessToken != "" && sess.User != nil {
		s := sess.toSession()
		return &s.User, s, nil
	}

	var user userPayload
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("supabase auth: decode signup: %w", err)
	}
	return &domain.AuthUser{ID: user.ID, Email: user.Email}, nil, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	q := url.Values{"grant_type": {"password"}}
	var sess sessionPayload
	if err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{
		"email":    email,
		"password": password,
	}, &sess); err != nil {
		return nil, err
	}
	return sess.toSession(), nil
}

// SignOut revokes the refresh tokens of the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.AuthUser, error) {
	var user userPayload
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &domain.AuthUser{ID: user.ID, Email: user.Email}, nil
}

// AuthorizeURL is where the browser starts an OAuth sign-in using PKCE.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return c.baseURL + "/authorize?" + q.Encode()
}

// ExchangeCodeForSession completes a PKCE flow.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.Session, error) {
	q := url.Values{"grant_type": {"pkce"}}
	var sess sessionPayload
	if err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}, &sess); err != nil {
		return nil, err
	}
	return sess.toSession(), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase auth: encode request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("supabase auth: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase auth: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("supabase auth: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var errResp map[string]interface{}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)

	msg := http.StatusText(resp.StatusCode)
	for _, key := range []string{"msg", "error_description", "message", "error"} {
		if m, ok := errResp[key].(string); ok && m != "" {
			msg = m
			break
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
