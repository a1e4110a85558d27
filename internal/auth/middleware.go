package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"ms-booking/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware verifies the bearer token against the OIDC issuer and builds the
// typed Identity once per request. Role and scope are validated here, never
// re-parsed downstream.
func Middleware() func(http.Handler) http.Handler {
	issuer := os.Getenv("OIDC_ISSUER")
	if issuer == "" {
		panic("OIDC_ISSUER env var not set")
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
	}

	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}

			idToken, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				unauthorized(w)
				return
			}

			var claims struct {
				Sub     string   `json:"sub"`
				Role    string   `json:"role"`
				EventID string   `json:"event_id"`
				Sectors []string `json:"sectors"`
			}
			if err := idToken.Claims(&claims); err != nil {
				unauthorized(w)
				return
			}
			if !models.ValidRole(claims.Role) {
				unauthorized(w)
				return
			}

			identity := models.Identity{
				UserID:       claims.Sub,
				Role:         claims.Role,
				EventScope:   claims.EventID,
				SectorScopes: claims.Sectors,
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthorized"}`))
}

// IdentityFrom extracts the verified identity from the request context.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity. Used by tests and
// by internal triggers that act on behalf of the system.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
