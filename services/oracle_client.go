package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"bounty-ledger/utils"
)

// VerificationRequest asks the oracle to confirm an off-platform action
type VerificationRequest struct {
	BountyID     uint   `json:"bounty_id"`
	RequestIndex uint   `json:"request_index"`
	Applicant    string `json:"applicant"`
	TwitterID    string `json:"twitter_id,omitempty"`
	ExternalRef  string `json:"external_ref"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

// OracleStatus is the oracle's view of one request
type OracleStatus struct {
	RequestID string `json:"request_id"`
	Fulfilled bool   `json:"fulfilled"`
	Result    bool   `json:"result"`
}

// OracleClient accepts verification requests synchronously and answers later
// through OnFulfillment.
type OracleClient interface {
	Submit(ctx context.Context, req VerificationRequest) (string, error)
}

// OracleStatusReader lets a poller pull results the oracle failed to push
type OracleStatusReader interface {
	Status(ctx context.Context, requestID string) (*OracleStatus, error)
}

type HTTPOracleClient struct {
	BaseURL  string
	Token    string
	Client   *http.Client
	Attempts int
	Backoff  time.Duration

	// SubmitBudget caps Submit including retries. Submit runs under the
	// bounty lock, so this bounds how long one apply can stall the engine.
	SubmitBudget time.Duration
}

func NewHTTPOracleClient(baseURL, token string) *HTTPOracleClient {
	return &HTTPOracleClient{
		BaseURL:      baseURL,
		Token:        token,
		Attempts:     3,
		Backoff:      2 * time.Second,
		SubmitBudget: 8 * time.Second,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Submit calls POST /requests on the oracle service
func (c *HTTPOracleClient) Submit(ctx context.Context, vr VerificationRequest) (string, error) {
	endpoint, err := url.JoinPath(c.BaseURL, "requests")
	if err != nil {
		return "", fmt.Errorf("invalid oracle URL '%s': %w", c.BaseURL, err)
	}
	jsonData, err := json.Marshal(vr)
	if err != nil {
		return "", err
	}
	if c.SubmitBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.SubmitBudget)
		defer cancel()
	}

	status, body, err := utils.DoWithRetry(ctx, c.Attempts, c.Backoff, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req)
	})
	if err != nil {
		return "", fmt.Errorf("oracle submit failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		log.Printf("[ORACLE] POST %s returned %d: %s", endpoint, status, string(body))
		return "", fmt.Errorf("oracle submit failed: %d", status)
	}

	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode oracle response: %w", err)
	}
	return out.RequestID, nil
}

// Status calls GET /requests/{id} on the oracle service
func (c *HTTPOracleClient) Status(ctx context.Context, requestID string) (*OracleStatus, error) {
	endpoint, err := url.JoinPath(c.BaseURL, "requests", url.PathEscape(requestID))
	if err != nil {
		return nil, fmt.Errorf("invalid oracle URL '%s': %w", c.BaseURL, err)
	}

	status, body, err := utils.DoWithRetry(ctx, c.Attempts, c.Backoff, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, nil, err
		}
		return c.do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("oracle status failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("oracle status returned %d: %s", status, string(body))
	}

	var out OracleStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode oracle status: %w", err)
	}
	if out.RequestID == "" {
		out.RequestID = requestID
	}
	return &out, nil
}

func (c *HTTPOracleClient) do(req *http.Request) (int, []byte, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, body, err
}
