package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// GatewayOrder is the gateway's view of a payment order.
type GatewayOrder struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
}

// Gateway talks to the external payment provider. Every call is bounded by
// the configured timeout and retried once on transient failure; a booking
// is never persisted on the strength of an ambiguous gateway response.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (*GatewayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
}

type GatewayClient struct {
	baseURL    string
	keyID      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewGatewayClient(baseURL, keyID string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		keyID:   keyID,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (c *GatewayClient) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (*GatewayOrder, error) {
	if amountMinorUnits <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", amountMinorUnits)
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	var order GatewayOrder
	if err := c.doWithRetry(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *GatewayClient) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}

	var order GatewayOrder
	if err := c.doWithRetry(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// doWithRetry performs the call with a single retry on transient failure
// (network error or 5xx). 4xx responses are definitive and never retried.
func (c *GatewayClient) doWithRetry(ctx context.Context, method, path string, body []byte, target any) error {
	err := c.do(ctx, method, path, body, target)
	if err == nil || !isTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}

	return c.do(ctx, method, path, body, target)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *GatewayClient) do(ctx context.Context, method, path string, body []byte, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.keyID != "" {
		req.Header.Set("Authorization", "Bearer "+c.keyID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("gateway request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: fmt.Errorf("failed to read gateway response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return &transientError{err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, respBody)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway rejected request with %d: %s", resp.StatusCode, respBody)
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}
