// Package supabase is an auth provider client for the Supabase GoTrue REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"uranai/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const subscriberBuffer = 8

// Client keeps one user's session in memory and notifies subscribers of changes
type Client struct {
	baseURL          string
	anonKey          string
	httpClient       *http.Client
	refreshThreshold time.Duration
	logger           *zap.Logger
	now              func() time.Time

	mu      sync.Mutex
	session *domain.AuthSession
	subs    map[int]chan domain.SessionEvent
	nextSub int
}

// NewClient creates a new auth provider client
func NewClient(baseURL, anonKey string, httpClient *http.Client, refreshThreshold time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		anonKey:          anonKey,
		httpClient:       httpClient,
		refreshThreshold: refreshThreshold,
		logger:           logger,
		now:              time.Now,
		subs:             make(map[int]chan domain.SessionEvent),
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
}

// SignInWithPassword signs in and announces SIGNED_IN
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}

	session, err := c.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	c.setSession(session, domain.EventSignedIn)
	c.logger.Info("Signed in", zap.String("user_id", session.UserID))
	return copySession(session), nil
}

// SignUp registers an account. The user confirms by mail, so no session is started.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	path := "/auth/v1/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, path, "", body, nil)
}

// SignOut ends the session locally even when the remote logout fails
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	var err error
	if current != nil {
		err = c.do(ctx, http.MethodPost, "/auth/v1/logout", current.AccessToken, nil, nil)
		if err != nil {
			c.logger.Warn("Remote logout failed", zap.Error(err))
		}
	}
	c.setSession(nil, domain.EventSignedOut)
	return nil
}

// GetSession returns the current session, refreshing it once it has expired
func (c *Client) GetSession(ctx context.Context) (*domain.AuthSession, error) {
	c.mu.Lock()
	current := copySession(c.session)
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if current.Remaining(c.now()) > 0 {
		return current, nil
	}
	return c.RefreshSession(ctx)
}

// RefreshSession exchanges the refresh token for a new session and announces
// TOKEN_REFRESHED. A rejected refresh token ends the session.
func (c *Client) RefreshSession(ctx context.Context) (*domain.AuthSession, error) {
	c.mu.Lock()
	current := copySession(c.session)
	c.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, domain.NewAuthError("", errors.New("no refresh token"))
	}

	var resp tokenResponse
	body := map[string]string{"refresh_token": current.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		if domain.IsKind(err, domain.KindAuth) {
			c.logger.Info("Refresh token rejected, ending session", zap.String("user_id", current.UserID))
			c.setSession(nil, domain.EventSignedOut)
		}
		return nil, err
	}

	session, err := c.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	if session.Email == "" {
		session.Email = current.Email
	}
	c.setSession(session, domain.EventTokenRefreshed)
	return copySession(session), nil
}

// RestoreSession installs a cached session without announcing it
func (c *Client) RestoreSession(ctx context.Context, session domain.AuthSession) error {
	if session.AccessToken == "" {
		return domain.NewAuthError("", errors.New("empty access token"))
	}
	if session.UserID == "" {
		claims, err := parseClaims(session.AccessToken)
		if err != nil {
			return domain.NewAuthError("", err)
		}
		session.UserID = claims.Subject
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return nil
}

// AccessToken returns a bearer token, refreshing it when it is close to expiry
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	current := copySession(c.session)
	c.mu.Unlock()

	if current == nil {
		return "", domain.NewAuthError("", errors.New("not signed in"))
	}
	if current.Remaining(c.now()) >= c.refreshThreshold {
		return current.AccessToken, nil
	}

	refreshed, err := c.RefreshSession(ctx)
	if err != nil {
		if current.Remaining(c.now()) > 0 && !domain.IsKind(err, domain.KindAuth) {
			c.logger.Warn("Token refresh failed, using current token", zap.Error(err))
			return current.AccessToken, nil
		}
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Subscribe registers for session events. A slow subscriber loses its oldest
// pending events, never the newest.
func (c *Client) Subscribe() (<-chan domain.SessionEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan domain.SessionEvent, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Client) setSession(session *domain.AuthSession, kind domain.SessionEventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = copySession(session)
	for _, ch := range c.subs {
		ev := domain.SessionEvent{Kind: kind, Session: copySession(session)}
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (c *Client) sessionFrom(resp tokenResponse) (*domain.AuthSession, error) {
	if resp.AccessToken == "" {
		return nil, domain.NewAuthError("", errors.New("token response without access token"))
	}

	session := &domain.AuthSession{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
	}

	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if session.UserID == "" || session.ExpiresAt.IsZero() {
		claims, err := parseClaims(resp.AccessToken)
		if err != nil {
			return nil, domain.NewAuthError("", err)
		}
		if session.UserID == "" {
			session.UserID = claims.Subject
		}
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	if session.UserID == "" {
		return nil, domain.NewAuthError("", errors.New("token without subject"))
	}
	return session, nil
}

// parseClaims reads the token claims. The signature is checked by the backend,
// not here.
func parseClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return domain.NewTimeoutError(err)
		}
		return domain.NewNetworkError("", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError("", fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewNetworkError("", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func statusError(status int, body []byte) error {
	var resp errorResponse
	_ = json.Unmarshal(body, &resp)
	cause := fmt.Errorf("auth provider status %d: %s", status, firstNonEmpty(resp.ErrorCode, resp.Error))

	if status == http.StatusTooManyRequests {
		err := domain.NewRateLimitedError()
		err.Err = cause
		return err
	}
	if status >= 500 {
		return domain.NewNetworkError("", cause)
	}

	switch firstNonEmpty(resp.ErrorCode, resp.Error) {
	case "invalid_credentials", "invalid_grant":
		if strings.Contains(resp.ErrorDescription+resp.Msg, "Refresh Token") {
			return domain.NewAuthError("セッションの有効期限が切れました。再度ログインしてください。", cause)
		}
		return domain.NewAuthError("メールアドレスまたはパスワードが正しくありません。", cause)
	case "email_not_confirmed":
		return domain.NewAuthError("メールアドレスの確認が完了していません。", cause)
	case "user_already_exists":
		return domain.NewAuthError("このメールアドレスは既に登録されています。", cause)
	case "weak_password":
		return domain.NewAuthError("パスワードが短すぎます。", cause)
	}

	message := firstNonEmpty(resp.Msg, resp.ErrorDescription, resp.Message)
	return domain.NewAuthError(message, cause)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func copySession(s *domain.AuthSession) *domain.AuthSession {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
