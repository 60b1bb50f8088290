package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("payment gateway credentials are not configured")

type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// GatewayOrder is the provider's order token the checkout widget is opened with.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// TokenSource hands out gateway order tokens and the public key the widget needs.
type TokenSource interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	PublicKey(ctx context.Context) (string, error)
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("payment gateway error %d (%s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("payment gateway error %d", e.StatusCode)
}

type ProviderConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// ProviderClient talks to the payment provider's REST API with the merchant secret.
type ProviderClient struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

func NewProviderClient(cfg ProviderConfig) *ProviderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
	}
}

func (c *ProviderClient) CreateOrder(ctx context.Context, in OrderRequest) (*GatewayOrder, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned an order without id")
	}
	return &order, nil
}

func (c *ProviderClient) PublicKey(context.Context) (string, error) {
	if c.keyID == "" {
		return "", ErrNotConfigured
	}
	return c.keyID, nil
}

// VerifySignature checks the widget's success signature: hex(HMAC-SHA256(order_id|payment_id, secret)).
func (c *ProviderClient) VerifySignature(orderID, paymentID, signature string) bool {
	if c.keySecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &envelope) == nil && envelope.Error.Description != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Description = envelope.Error.Description
	} else {
		apiErr.Description = strings.TrimSpace(string(b))
	}
	return apiErr
}
