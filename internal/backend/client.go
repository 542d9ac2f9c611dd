// Package backend is the client for the divination REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"uranai/internal/domain"
	"uranai/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenSource yields the bearer token for the signed-in user
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client calls the backend REST API on behalf of one signed-in user
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Recorder
	logger     *zap.Logger
}

// NewClient creates a backend client. A nil limiter disables client-side rate limiting.
func NewClient(
	baseURL string,
	tokens TokenSource,
	httpClient *http.Client,
	limiter *rate.Limiter,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    limiter,
		metrics:    recorder,
		logger:     logger,
	}
}

type createProfileResponse struct {
	Message   string         `json:"message"`
	ProfileID int            `json:"profile_id"`
	Profile   domain.Profile `json:"profile"`
}

type divinationResponse struct {
	Message          string                   `json:"message"`
	ResultID         int                      `json:"result_id"`
	DivinationResult domain.DivinationPayload `json:"divination_result"`
}

type currentUserResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	PlanType      string `json:"plan_type"`
	TicketBalance int    `json:"ticket_balance"`
}

// CreateProfile registers a new profile and returns it with its backend id
func (c *Client) CreateProfile(ctx context.Context, in domain.ProfileInput) (domain.Profile, error) {
	var resp createProfileResponse
	if err := c.do(ctx, http.MethodPost, "/profiles/", in, &resp); err != nil {
		return domain.Profile{}, err
	}

	profile := resp.Profile
	if profile.ID == 0 {
		profile.ID = resp.ProfileID
	}
	return profile, nil
}

// ListProfiles returns every profile of the user
func (c *Client) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	var profiles []domain.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/", nil, &profiles); err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return profiles, nil
}

// UpdateProfile applies a partial update
func (c *Client) UpdateProfile(ctx context.Context, id int, update domain.ProfileUpdate) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/profiles/%d", id), update, nil)
}

// DeleteProfile removes a profile
func (c *Client) DeleteProfile(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/profiles/%d", id), nil, nil)
}

// CreateDivinationResult requests a divination and returns its typed result
func (c *Client) CreateDivinationResult(ctx context.Context, req domain.DivinationRequest) (*domain.DivinationPayload, error) {
	var resp divinationResponse
	if err := c.do(ctx, http.MethodPost, "/divination-results/", req, &resp); err != nil {
		return nil, err
	}
	payload := resp.DivinationResult
	if payload.FortuneType == domain.FortuneNone {
		payload.FortuneType = req.FortuneType
	}
	if payload.Purpose == domain.PurposeNone {
		payload.Purpose = req.RequestData.Purpose
	}
	return &payload, nil
}

// GetCurrentUser returns the plan and ticket balance of the signed-in user
func (c *Client) GetCurrentUser(ctx context.Context) (domain.Entitlement, error) {
	var resp currentUserResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &resp); err != nil {
		return domain.Entitlement{}, err
	}
	return domain.Entitlement{
		IsPremium:     strings.EqualFold(resp.PlanType, "premium"),
		TicketBalance: resp.TicketBalance,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.NewNetworkError("", fmt.Errorf("rate limiter: %w", err))
		}
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

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
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordRequestLatency(time.Since(started))
	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		if isTimeout(err) {
			return domain.NewTimeoutError(err)
		}
		return domain.NewNetworkError("", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordHTTPStatus(resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return domain.NewTimeoutError(err)
		}
		return domain.NewNetworkError("", fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Backend returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return statusError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewNetworkError("サーバーから不正な応答を受信しました。", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// statusError maps a non-2xx response onto the controller's error kinds
func statusError(status int, body []byte) error {
	detail := errorDetail(body)
	cause := fmt.Errorf("backend status %d", status)

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if detail == "" {
			detail = "入力内容に誤りがあります。"
		}
		err := domain.NewValidationError(detail)
		err.Err = cause
		return err
	case http.StatusUnauthorized:
		return domain.NewAuthError("", cause)
	case http.StatusForbidden:
		return domain.NewAuthError("アクセス権限がありません。", cause)
	case http.StatusTooManyRequests:
		err := domain.NewRateLimitedError()
		err.Err = cause
		return err
	}

	if detail == "" {
		detail = "予期せぬエラーが発生しました。"
	}
	return domain.NewNetworkError(detail, cause)
}

// errorDetail extracts the "detail" field, which is a string or a list of validation errors
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
