package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VerifyResult is the provider's verdict on an external uid and id token.
type VerifyResult struct {
	UID      string
	Email    string
	Verified bool
}

// Client calls the external identity provider to confirm that an opaque uid
// really belongs to the caller. The service itself never authenticates users;
// it only checks the provider's word during bootstrap.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. Skip short-circuits verification for local dev.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifyUser checks the uid/id-token pair against the provider.
func (c *Client) VerifyUser(ctx context.Context, uid, idToken string) (*VerifyResult, error) {
	if c.Skip {
		return &VerifyResult{UID: uid, Verified: true}, nil
	}
	if uid == "" {
		return nil, fmt.Errorf("uid required")
	}

	body, _ := json.Marshal(map[string]string{"uid": uid, "id_token": idToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity provider error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		UID      string `json:"uid"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &VerifyResult{UID: out.UID, Email: out.Email, Verified: out.Verified}, nil
}
