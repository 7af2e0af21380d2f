package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestShopifyHmacAcceptsValidSignature(t *testing.T) {
	const secret = "shpss_test"
	const body = `{"id":1}`

	var seenBody string
	handler := ShopifyHmac(secret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", signBody(secret, body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, seenBody, "body must be readable downstream")
}

func TestShopifyHmacRejectsBadSignature(t *testing.T) {
	handler := ShopifyHmac("shpss_test", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(`{"id":1}`))
	req.Header.Set("X-Shopify-Hmac-Sha256", signBody("wrong-secret", `{"id":1}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShopifyHmacRejectsMissingSignature(t *testing.T) {
	handler := ShopifyHmac("shpss_test", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(`{"id":1}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
