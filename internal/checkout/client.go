package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"minicart-sync/internal/cart"
	"minicart-sync/internal/transport"
)

// checkoutAPIPath is the base path for the public order-form endpoints.
const checkoutAPIPath = "/api/checkout/pub"

// userAgent identifies this client to upstream servers.
// Required: storefront CDN/WAF stacks rate-limit requests without User-Agent.
const userAgent = "minicart-sync/1.0"

// Config holds checkout client configuration.
type Config struct {
	StoreURL string
	Account  string // storefront account name, sent as an identifying header
	APIToken string // optional bearer token for authenticated storefronts

	// Timeout for each remote operation. Defaults to 30s.
	Timeout time.Duration
}

// Client implements Service against the storefront checkout API.
//
// The API returns the full order form in the body of every item mutation, so
// no follow-up read is needed to obtain authoritative state.
type Client struct {
	httpClient *http.Client
	storeURL   string
	account    string
	apiToken   string
}

// New creates a checkout client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Use Chrome TLS fingerprint transport to avoid JA3-based rate limiting.
	// See internal/transport for rationale.
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport.NewChromeTransport(timeout),
		},
		storeURL: strings.TrimSuffix(cfg.StoreURL, "/"),
		account:  cfg.Account,
		apiToken: cfg.APIToken,
	}, nil
}

// itemsRequest is the wire shape of both item mutation operations.
type itemsRequest struct {
	OrderItems []cart.SyncInput `json:"orderItems"`
}

// UpdateItems changes quantity/options of server-confirmed items.
// A nil/empty item set is a no-op returning no order form, mirroring the
// backend which rejects empty mutations.
func (c *Client) UpdateItems(ctx context.Context, orderFormID string, items []cart.SyncInput) (*cart.OrderForm, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if orderFormID == "" {
		return nil, cart.NewValidationError("orderFormId", "required")
	}

	path := fmt.Sprintf("%s/orderForm/%s/items/update", checkoutAPIPath, orderFormID)
	return c.doOrderFormRequest(ctx, "updateItems", http.MethodPost, path, itemsRequest{OrderItems: items})
}

// AddItems appends never-synced items to the order form.
// A nil/empty item set is a no-op returning no order form.
func (c *Client) AddItems(ctx context.Context, orderFormID string, items []cart.SyncInput) (*cart.OrderForm, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if orderFormID == "" {
		return nil, cart.NewValidationError("orderFormId", "required")
	}

	path := fmt.Sprintf("%s/orderForm/%s/items", checkoutAPIPath, orderFormID)
	return c.doOrderFormRequest(ctx, "addItems", http.MethodPost, path, itemsRequest{OrderItems: items})
}

// GetOrderForm fetches (or lazily creates) the current order form.
func (c *Client) GetOrderForm(ctx context.Context) (*cart.OrderForm, error) {
	return c.doOrderFormRequest(ctx, "getOrderForm", http.MethodPost, checkoutAPIPath+"/orderForm", nil)
}

// doOrderFormRequest executes one checkout API call and decodes the returned
// order form. All failures come back as *cart.RemoteError tagged with the
// logical operation name.
func (c *Client) doOrderFormRequest(ctx context.Context, operation, method, path string, body interface{}) (*cart.OrderForm, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s request: %w", operation, err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", operation, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cart.NewTransportError(operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cart.NewTransportError(operation, err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(operation, resp.StatusCode, respBody)
	}

	var form cart.OrderForm
	if err := json.Unmarshal(respBody, &form); err != nil {
		return nil, cart.NewRemoteError(operation, resp.StatusCode,
			"MALFORMED_RESPONSE", "backend returned an unparseable order form")
	}

	return &form, nil
}

// setHeaders sets headers for checkout API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if c.account != "" {
		req.Header.Set("X-Store-Account", c.account)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

// backendError is the error envelope the checkout API uses.
type backendError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseErrorResponse converts a backend error payload to a RemoteError.
func parseErrorResponse(operation string, statusCode int, body []byte) error {
	var payload backendError
	json.Unmarshal(body, &payload) // Best effort parse

	code := payload.Error.Code
	message := payload.Error.Message

	switch {
	case statusCode == 404:
		if code == "" {
			code = "ORDER_FORM_NOT_FOUND"
		}
		if message == "" {
			message = "order form not found"
		}
	case statusCode == 401 || statusCode == 403:
		if code == "" {
			code = "UNAUTHORIZED"
		}
		if message == "" {
			message = "checkout authentication failed"
		}
	case statusCode == 429:
		if code == "" {
			code = "RATE_LIMITED"
		}
		if message == "" {
			message = "checkout rate limit exceeded"
		}
	default:
		if code == "" {
			code = "BACKEND_ERROR"
		}
		if message == "" {
			message = fmt.Sprintf("backend rejected the request with status %d", statusCode)
		}
	}

	return cart.NewRemoteError(operation, statusCode, code, message)
}
