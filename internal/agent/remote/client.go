// Package remote is the field agent's HTTP client for the central
// service. It classifies failures into transport-level unavailability,
// which the gateway converts into queued intents, and application-level
// rejections, which are surfaced to the caller as is.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"example.com/baletrack/internal/models"
)

// ErrNetworkUnavailable wraps any transport-level failure, including
// timeouts. It is the signal to fall back to the offline queue.
var ErrNetworkUnavailable = errors.New("server unreachable")

// Error codes mirrored from the server's error envelope
const (
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeTransient         = "TRANSIENT_CONFLICT"
)

// APIError is an application-level rejection decoded from the server
type APIError struct {
	HTTPStatus    int
	Code          string
	Message       string
	CurrentStatus models.BaleStatus
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("server rejected request (%s): %s", e.Code, e.Message)
}

// Client defines the remote operations the agent needs
type Client interface {
	Ping(ctx context.Context) error
	ListBales(ctx context.Context) ([]models.Bale, error)
	Transition(ctx context.Context, recordID string, target models.BaleStatus) (*models.Bale, error)
}

// HTTPClient implements Client over the service's REST API
type HTTPClient struct {
	baseURL    string
	actorID    string
	actorRoles string
	httpClient *http.Client
}

// NewHTTPClient creates a new remote client. The timeout is a hard
// bound on every call; the UI-facing contract must never hang.
func NewHTTPClient(baseURL, actorID, actorRoles string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		actorID:    actorID,
		actorRoles: actorRoles,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping probes the health endpoint
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrNetworkUnavailable, "health returned %d", resp.StatusCode)
	}
	return nil
}

// ListBales fetches the full authoritative bale set
func (c *HTTPClient) ListBales(ctx context.Context) ([]models.Bale, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bales", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var bales []models.Bale
	if err := json.NewDecoder(resp.Body).Decode(&bales); err != nil {
		return nil, errors.Wrap(err, "failed to decode bale listing")
	}
	return bales, nil
}

// Transition requests a status change on the server
func (c *HTTPClient) Transition(ctx context.Context, recordID string, target models.BaleStatus) (*models.Bale, error) {
	body, err := json.Marshal(models.TransitionRequest{TargetStatus: string(target)})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/bales/%s/status", c.baseURL, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var bale models.Bale
	if err := json.NewDecoder(resp.Body).Decode(&bale); err != nil {
		return nil, errors.Wrap(err, "failed to decode bale")
	}
	return &bale, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("X-Actor-Id", c.actorID)
	req.Header.Set("X-Actor-Roles", c.actorRoles)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{HTTPStatus: resp.StatusCode}

	var envelope struct {
		Message       string `json:"message"`
		Code          string `json:"code"`
		CurrentStatus string `json:"current_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Message = envelope.Message
		apiErr.Code = envelope.Code
		apiErr.CurrentStatus = models.BaleStatus(envelope.CurrentStatus)
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
