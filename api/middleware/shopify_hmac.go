package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/synqsell/synqsell-backend/api/responses"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
)

const shopifyHmacHeader = "X-Shopify-Hmac-Sha256"

// ShopifyHmac verifies the webhook signature Shopify computes over the raw
// body. The body is rewound for the controller after verification.
func ShopifyHmac(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			signature := r.Header.Get(shopifyHmacHeader)
			if signature == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))

			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write(payload)
			expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(expected), []byte(signature)) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
