package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plateful/plateful/internal/pkg/env"
)

const defaultPaymentAPIBaseURL = "https://api.stripe.com/v1"

// Client talks to the payment processor's REST API.
type Client struct {
	APIBaseURL string
	SecretKey  string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PAYMENT_API_BASE_URL and
// PAYMENT_SECRET_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		APIBaseURL: strings.TrimRight(env.GetEnv("PAYMENT_API_BASE_URL", defaultPaymentAPIBaseURL), "/"),
		SecretKey:  strings.TrimSpace(env.GetEnv("PAYMENT_SECRET_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) VerifyPayment(ctx context.Context, paymentRef string) (bool, error) {
	ref := strings.TrimSpace(paymentRef)
	if ref == "" {
		return false, errors.New("payment reference is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/payment_intents/"+url.PathEscape(ref), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("payment lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, err
	}
	return out.Status == "succeeded", nil
}

func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amountCents int64) (string, error) {
	ref := strings.TrimSpace(paymentRef)
	if ref == "" {
		return "", errors.New("payment reference is required")
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("invalid refund amount: %d", amountCents)
	}

	form := url.Values{}
	form.Set("payment_intent", ref)
	form.Set("amount", strconv.FormatInt(amountCents, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/refunds", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("refund failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("refund response missing id")
	}
	return out.ID, nil
}
