package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/jonny/logtail/pkg/apierror"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body as
// "sha256=<hex>".
const SignatureHeader = "X-Logtail-Signature-256"

// BearerAuth returns middleware that validates a Bearer token in the Authorization header.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, value, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			if !hmac.Equal([]byte(strings.TrimSpace(value)), []byte(token)) {
				writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HMACAuth returns middleware that validates an HMAC-SHA256 signature of the
// body buffered by BodyReader. Requests without a body are signed over the
// empty string.
func HMACAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sigHeader := r.Header.Get(SignatureHeader)
			if sigHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing signature header")
				return
			}

			const prefix = "sha256="
			if !strings.HasPrefix(sigHeader, prefix) {
				writeJSONError(w, http.StatusUnauthorized, "invalid signature format")
				return
			}

			providedSig, err := hex.DecodeString(strings.TrimPrefix(sigHeader, prefix))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid signature encoding")
				return
			}

			body, _ := RawBody(r)
			if !hmac.Equal(Sign(secret, body), providedSig) {
				writeJSONError(w, http.StatusUnauthorized, "invalid HMAC signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sign computes the HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// rawBodyKey is used to store the raw request body in context (set by BodyReader middleware).
type rawBodyKey struct{}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	apierror.Write(w, apierror.New(code, message))
}
