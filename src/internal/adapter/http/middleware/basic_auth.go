package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/api-sage/yosoku-ledger/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// HashChannelKey hashes a plaintext channel key for BasicAuth.
func HashChannelKey(channelKey string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(channelKey), bcrypt.DefaultCost)
}

// BasicAuth admits requests whose basic-auth user is channelID and whose
// password matches the bcrypt channelKeyHash.
func BasicAuth(channelID string, channelKeyHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || len(channelKeyHash) == 0 {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || bcrypt.CompareHashAndPassword(channelKeyHash, []byte(key)) != nil {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
