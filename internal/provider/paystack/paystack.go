package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.paystack.co"

// InitializeResult is the provider's answer to a payment initialization.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the provider's view of a transaction, used by read-only
// verification paths. It never feeds a ledger mutation.
type VerifyResult struct {
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	PaidAt      string `json:"paid_at"`
	Channel     string `json:"channel"`
	Currency    string `json:"currency"`
}

// Client is the payment-provider contract the core depends on. Calls must
// happen outside any open ledger transaction: they are slow network I/O.
type Client interface {
	Initialize(ctx context.Context, email string, amountMinor int64, reference string) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// HTTPClient talks to the Paystack REST API.
type HTTPClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewHTTPClient(baseURL, secretKey string) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) Initialize(ctx context.Context, email string, amountMinor int64, reference string) (*InitializeResult, error) {
	payload, err := json.Marshal(map[string]any{
		"email":     email,
		"amount":    amountMinor,
		"reference": reference,
		"currency":  "NGN",
	})
	if err != nil {
		return nil, fmt.Errorf("encode initialize payload: %w", err)
	}

	var result InitializeResult
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	if !env.Status {
		if env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("provider rejected request: %s", env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode provider data: %w", err)
	}
	return nil
}

// VerifySignature checks the keyed hash the provider computes over the raw,
// unparsed webhook body (HMAC-SHA512, hex encoded). Comparison is
// constant-time.
func VerifySignature(secretKey string, payload []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
