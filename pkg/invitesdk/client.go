package invitesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the invite service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	accessToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken returns a copy of the client that authenticates with the given
// bearer access token.
func (c *Client) WithToken(accessToken string) *Client {
	cp := *c
	cp.accessToken = accessToken
	return &cp
}

// Validate previews the property behind a token. It works without a token;
// an authenticated client additionally learns about wrong-account invites.
func (c *Client) Validate(ctx context.Context, rawToken string) (PropertyPreview, error) {
	var out ValidateResponse
	err := c.call(ctx, http.MethodPost, "/v1/invites/validate", TokenRequest{Token: rawToken}, &out, http.StatusOK)
	return out.Property, err
}

// Accept links the authenticated caller to the token's property.
func (c *Client) Accept(ctx context.Context, rawToken string) (AcceptResponse, error) {
	var out AcceptResponse
	err := c.call(ctx, http.MethodPost, "/v1/invites/accept", TokenRequest{Token: rawToken}, &out, http.StatusOK)
	return out, err
}

func (c *Client) Issue(ctx context.Context, req IssueRequest) (IssueResponse, error) {
	var out IssueResponse
	err := c.call(ctx, http.MethodPost, "/v1/invites", req, &out, http.StatusCreated)
	return out, err
}

func (c *Client) Revoke(ctx context.Context, tokenID string) error {
	var out OKResponse
	return c.call(ctx, http.MethodPost, "/v1/invites/revoke", RevokeRequest{TokenID: tokenID}, &out, http.StatusOK)
}

func (c *Client) ListInvites(ctx context.Context, propertyID string) ([]InviteSummary, error) {
	var out ListInvitesResponse
	err := c.call(ctx, http.MethodGet, "/v1/properties/"+url.PathEscape(propertyID)+"/invites", nil, &out, http.StatusOK)
	return out.Invites, err
}

func (c *Client) GetRollout(ctx context.Context, feature string) (RolloutResponse, error) {
	var out RolloutResponse
	err := c.call(ctx, http.MethodGet, "/v1/rollout/"+url.PathEscape(feature), nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) SetRollout(ctx context.Context, feature string, percent int, reason string) (RolloutResponse, error) {
	var out RolloutResponse
	req := SetRolloutRequest{Percent: &percent, Reason: reason}
	err := c.call(ctx, http.MethodPut, "/v1/rollout/"+url.PathEscape(feature), req, &out, http.StatusOK)
	return out, err
}

func (c *Client) EvaluateRollout(ctx context.Context, feature string) (EvaluationResponse, error) {
	var out EvaluationResponse
	err := c.call(ctx, http.MethodGet, "/v1/rollout/"+url.PathEscape(feature)+"/evaluation", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.call(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.call(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, in, out any, expectedStatus int) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, out, expectedStatus)
}

// decodeJSON reads the body once and decodes either the expected payload or
// a FailureResponse.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		var failure FailureResponse
		_ = json.Unmarshal(bodyBytes, &failure)
		return newError(resp.StatusCode, failure)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
