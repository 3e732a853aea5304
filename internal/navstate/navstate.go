// Package navstate carries a content payload between pages inside a signed
// token, the way a client router hands state to the next view.
package navstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reelhouse/reelhouse/internal/content"
)

const DefaultTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid navigation state")

type Claims struct {
	Content map[string]any `json:"content"`
	jwt.RegisteredClaims
}

func Encode(secret string, payload content.Payload, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("encode state: empty secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := &Claims{
		Content: map[string]any(payload),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Decode verifies a token and returns the payload it carries. A token with
// no content claim decodes to an empty payload.
func Decode(secret string, tokenStr string) (content.Payload, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithJSONNumber())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Content == nil {
		return content.Payload{}, nil
	}
	return content.Payload(claims.Content), nil
}
