package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoUserID is returned when a token carries no recognizable user id claim.
var ErrNoUserID = errors.New("token has no user id claim")

// userIDClaims lists the claim names portals use for the user id, in lookup order.
var userIDClaims = []string{"sub", "id", "_id", "userId"}

// Claims is the subset of token claims the client cares about.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token had expired at now. Tokens without exp never expire.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes the token without verifying its signature. The server
// remains the authority; the client only needs to know who it is.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var c Claims
	for _, name := range userIDClaims {
		if id := stringClaim(mc[name]); id != "" {
			c.UserID = id
			break
		}
	}
	if c.UserID == "" {
		return Claims{}, ErrNoUserID
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("parse exp: %w", err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

func stringClaim(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return ""
	}
}
