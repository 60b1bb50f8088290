package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProxyClient obtains order tokens from a separately deployed payment proxy
// exposing POST /api/payment/order and GET /api/payment/key.
type ProxyClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type proxyOrderResponse struct {
	Order GatewayOrder `json:"order"`
}

type proxyKeyResponse struct {
	KeyID string `json:"keyId"`
}

func (c *ProxyClient) CreateOrder(ctx context.Context, in OrderRequest) (*GatewayOrder, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payment/order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out proxyOrderResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Order.ID == "" {
		return nil, fmt.Errorf("payment proxy returned an order without id")
	}
	return &out.Order, nil
}

func (c *ProxyClient) PublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/payment/key", nil)
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}

	var out proxyKeyResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.KeyID == "" {
		return "", ErrNotConfigured
	}
	return out.KeyID, nil
}

func (c *ProxyClient) do(req *http.Request, into any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode proxy response: %w", err)
	}
	return nil
}
