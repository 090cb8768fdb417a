package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, float64(25000), body["amount"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "DEP_1700000000000_AB12CD34"
			}
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "sk_test_secret")
	result, err := client.Initialize(context.Background(), "ada@example.com", 25000, "DEP_1700000000000_AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	assert.Equal(t, "abc123", result.AccessCode)
}

func TestInitializeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid amount"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "sk_test_secret")
	_, err := client.Initialize(context.Background(), "ada@example.com", -1, "ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/DEP_1700000000000_AB12CD34", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"amount": 25000,
				"paid_at": "2026-01-02T03:04:05.000Z",
				"channel": "card",
				"currency": "NGN"
			}
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "sk_test_secret")
	result, err := client.Verify(context.Background(), "DEP_1700000000000_AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, int64(25000), result.AmountMinor)
	assert.Equal(t, "card", result.Channel)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write(payload)
	good := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature("secret", payload, good))
	assert.False(t, VerifySignature("secret", payload, "deadbeef"))
	assert.False(t, VerifySignature("other", payload, good))
	assert.False(t, VerifySignature("secret", []byte(`tampered`), good))
	assert.False(t, VerifySignature("", payload, good))
	assert.False(t, VerifySignature("secret", payload, ""))
}
