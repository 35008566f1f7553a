package auth

import (
	"context"
	"net/http"
	"strings"

	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const publicKeyContextKey contextKey = "auth_public_key"

type Claims struct {
	PublicKey string `json:"publicKey"`
	jwt.RegisteredClaims
}

// New gates a route behind the bearer credential issued by the nonce
// exchange. The authenticated public key lands in the request context.
func New(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("access denied, no token provided", resp.CategoryUnauthorized))

				return
			}

			claims := &Claims{}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}

				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("invalid or expired token", resp.CategoryForbidden))

				return
			}

			ctx := context.WithValue(r.Context(), publicKeyContextKey, claims.PublicKey)

			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// PublicKeyFromContext returns the authenticated caller's public key, empty
// when the route was not behind the auth middleware.
func PublicKeyFromContext(ctx context.Context) string {
	publicKey, _ := ctx.Value(publicKeyContextKey).(string)

	return publicKey
}
