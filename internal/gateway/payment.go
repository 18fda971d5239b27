// Package gateway contains clients for external services the API depends on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Intent is the subset of the payment provider's intent object the API needs.
// ClientSecret is handed to the frontend so it can confirm the payment
// directly with the provider.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// UpstreamError reports a non-2xx response from the payment provider. The
// handlers map it to 502 so callers can distinguish provider outages from
// their own bad input.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Body)
}

// PaymentClient talks to the payment provider's HTTP API.  The secret key is
// sent as a bearer token on every request.
type PaymentClient struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// NewPaymentClient builds a client with a bounded request timeout.
func NewPaymentClient(baseURL, secretKey string) *PaymentClient {
	return &PaymentClient{
		BaseURL:    baseURL,
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createIntentReq struct {
	AmountCents uint64            `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateIntent opens a payment intent for the given amount.  Metadata travels
// to the provider unchanged and comes back on webhooks, so callers use it to
// correlate the intent with an event and tier.
func (p *PaymentClient) CreateIntent(ctx context.Context, amountCents uint64, currency string, metadata map[string]string) (Intent, error) {
	payload, err := json.Marshal(createIntentReq{
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    metadata,
	})
	if err != nil {
		return Intent{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/payment_intents", bytes.NewReader(payload))
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return Intent{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Intent{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out Intent
	if err := json.Unmarshal(body, &out); err != nil {
		return Intent{}, fmt.Errorf("decode intent response: %w", err)
	}
	if out.ID == "" {
		return Intent{}, &UpstreamError{StatusCode: resp.StatusCode, Body: "missing intent id"}
	}
	return out, nil
}
