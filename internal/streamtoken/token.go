package streamtoken

import (
	"errors"
	"time"

	"listing-voice-gateway/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Manager issues and verifies the short-lived token that correlates a
// media-socket connection back to the webhook that announced the call.
// The token carries only the provider call ID; Twilio cannot forward
// arbitrary webhook state to the socket handshake, so the call ID rides
// in the stream URL as a signed credential.
//
// Tokens are validated at connect time only. A token expiring mid-call
// never tears the call down.

const purposeMediaStream = "media_stream"

type Manager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
}

type Claims struct {
	jwt.RegisteredClaims

	CallID  string `json:"call_id"`
	Purpose string `json:"purpose"`
}

func NewManager(cfg config.StreamTokenConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("STREAM_TOKEN_SECRET is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// Issue mints a token for one call.
func (m *Manager) Issue(now time.Time, callID string) (string, error) {
	if callID == "" {
		return "", errors.New("streamtoken: call id is required")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		CallID:  callID,
		Purpose: purposeMediaStream,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Verify checks the token and returns the call ID it carries.
func (m *Manager) Verify(tokenString string, now time.Time) (string, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if err := jwt.NewValidator(opts...).Validate(claims.RegisteredClaims); err != nil {
		return "", err
	}

	if claims.Purpose != purposeMediaStream {
		return "", errors.New("streamtoken: purpose mismatch")
	}
	if claims.CallID == "" {
		return "", errors.New("streamtoken: call_id missing")
	}
	return claims.CallID, nil
}
