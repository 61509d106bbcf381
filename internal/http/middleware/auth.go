package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

// ActorKey is the context key for the authenticated actor.
const ActorKey contextKey = "actor"

// ActorClaims are the access-token claims this service consumes. Tokens are
// issued elsewhere; here they only identify which actor is calling.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Auth creates middleware that validates bearer tokens and resolves the
// calling actor (applicant or employer) into the request context.
func Auth(secret []byte, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}
			if tokenString == "" {
				http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
				return
			}

			claims := &ActorClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			}, jwt.WithIssuer(issuer))
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			actorID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, `{"error":"invalid token subject"}`, http.StatusUnauthorized)
				return
			}

			role := domain.Role(claims.Role)
			if role != domain.RoleApplicant && role != domain.RoleEmployer {
				http.Error(w, `{"error":"invalid role in token"}`, http.StatusUnauthorized)
				return
			}

			actor := domain.Actor{ID: actorID, Role: role}
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor extracts the authenticated actor from the request context.
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(domain.Actor)
	return actor, ok
}
