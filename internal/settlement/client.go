// Package settlement is the client side of the external settlement
// boundary — the system of record that custodies the reward pool and
// executes payouts. This process consumes it as a balance oracle and a
// payout sink; it never moves funds itself.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// PayoutRequest is a validated settlement instruction. The boundary
// rejects it if Σ basisPoints > 10000 or the pool lacks funds. The
// idempotency key lets the boundary de-duplicate a retried submit.
type PayoutRequest struct {
	BossKind       string   `json:"bossKind"`
	Identities     []string `json:"identities"`
	BasisPoints    []int64  `json:"basisPoints"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

// Client talks JSON over HTTP to the settlement boundary.
type Client struct {
	endpoint   string
	apiKey     string
	maxRetries uint64
	httpClient *http.Client
}

// NewClient creates a settlement boundary client. timeout bounds each
// individual call; maxRetries bounds transient-failure retries before
// the caller parks the settlement.
func NewClient(endpoint, apiKey string, timeout time.Duration, maxRetries uint64) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type payoutResponse struct {
	TxReference string `json:"txReference"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PoolBalance returns the live custodied balance for a boss kind.
// Retried with exponential backoff up to the configured bound.
func (c *Client) PoolBalance(ctx context.Context, bossKind string) (decimal.Decimal, error) {
	var out balanceResponse
	op := func() error {
		url := fmt.Sprintf("%s/pool/balance?boss=%s", c.endpoint, bossKind)
		return c.do(ctx, http.MethodGet, url, nil, &out)
	}
	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return decimal.Zero, fmt.Errorf("pool balance %s: %w", bossKind, err)
	}
	return out.Balance, nil
}

// SubmitPayout dispatches a payout instruction and returns the boundary's
// transaction reference. Client errors (4xx) are permanent — an invalid
// instruction never becomes valid by retrying.
func (c *Client) SubmitPayout(ctx context.Context, req PayoutRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal payout request: %w", err)
	}

	var out payoutResponse
	op := func() error {
		return c.do(ctx, http.MethodPost, c.endpoint+"/payout", body, &out)
	}
	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return "", fmt.Errorf("submit payout %s: %w", req.BossKind, err)
	}
	return out.TxReference, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0 // bounded by retry count, not wall clock
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		err := fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, apiErr.Error)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
