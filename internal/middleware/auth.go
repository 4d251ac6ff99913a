// Package middleware provides the HTTP middleware chain: auth, rate
// limiting, CORS, and brand resolution.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studioshot/platform/pkg/logger"
)

type contextKey string

const (
	personIDKey contextKey = "person_id"
	roleKey     contextKey = "role"
	brandKey    contextKey = "brand"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	PersonID string `json:"person_id"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Brand    string `json:"brand,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates bearer tokens and stores the caller's identity on the
// request context.
type Auth struct {
	secret    []byte
	tokenTTL  time.Duration
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuth creates an auth middleware. skipPaths are served without a token.
func NewAuth(secret string, tokenTTL time.Duration, skipPaths []string, log *logger.Logger) *Auth {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Auth{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		log:       log,
		skipPaths: skip,
	}
}

// IssueToken signs a token for the given identity.
func (a *Auth) IssueToken(personID, email, role, brand string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		PersonID: personID,
		Email:    email,
		Role:     role,
		Brand:    brand,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   personID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Handler returns the middleware handler.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "invalid Authorization header format")
			return
		}

		claims, err := a.validateToken(parts[1])
		if err != nil {
			a.log.WithError(err).Warn("token validation failed")
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), personIDKey, claims.PersonID)
		if claims.Role != "" {
			ctx = context.WithValue(ctx, roleKey, claims.Role)
		}
		if claims.Brand != "" && GetBrand(ctx) == "" {
			ctx = context.WithValue(ctx, brandKey, claims.Brand)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// GetPersonID returns the authenticated person id, or "" when the request
// was unauthenticated.
func GetPersonID(ctx context.Context) string {
	id, _ := ctx.Value(personIDKey).(string)
	return id
}

// GetRole returns the authenticated role, or "".
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// GetBrand returns the resolved brand, or "".
func GetBrand(ctx context.Context) string {
	brand, _ := ctx.Value(brandKey).(string)
	return brand
}

// WithBrand stores a brand on the context; exposed for the brand middleware
// and tests.
func WithBrand(ctx context.Context, brand string) context.Context {
	return context.WithValue(ctx, brandKey, brand)
}
