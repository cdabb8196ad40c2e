package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

type operatorKey struct{}

// WithOperator stores the authenticated operator id in ctx.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

// OperatorID returns the operator id set by Auth, or "".
func OperatorID(ctx context.Context) string {
	id, _ := ctx.Value(operatorKey{}).(string)
	return id
}

// IssueToken signs an HS256 operator session token.
func IssueToken(secret, issuer, operatorID string, ttl time.Duration, now time.Time) (string, error) {
	if operatorID == "" {
		return "", errors.New("operator id is required")
	}
	claims := jwt.StandardClaims{
		Subject:   operatorID,
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates the token and returns the operator id it carries.
func ParseToken(secret, issuer, tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if issuer != "" && !claims.VerifyIssuer(issuer, true) {
		return "", errors.New("unexpected issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Auth rejects requests without a valid Bearer token and exposes the
// operator id through OperatorID.
func Auth(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			operatorID, err := ParseToken(secret, issuer, tokenString)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operatorID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="pipeline"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "message": msg})
}
