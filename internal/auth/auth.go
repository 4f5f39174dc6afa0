// Package auth verifies bearer tokens and resolves them to review actors.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/persistorai/caseqc/internal/models"
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// maxClockSkew is the tolerance applied to issued-at checks.
const maxClockSkew = 5 * time.Second

// Claims represents the JWT claims accepted by the service.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens minted by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a Verifier for tokens signed with secret by issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify checks the token signature and claims and returns the actor it
// identifies. An actor holding several roles acts with the highest one.
func (v *Verifier) Verify(token string) (models.Actor, error) {
	claims, err := v.parse(token)
	if err != nil {
		return models.Actor{}, err
	}

	role, ok := highestRole(claims.Roles)
	if !ok {
		return models.Actor{}, fmt.Errorf("%w: no recognised role", ErrInvalidToken)
	}

	return models.Actor{ID: claims.Subject, Role: role}, nil
}

// ExpiresAt returns the expiry of a token that Verify accepts.
func (v *Verifier) ExpiresAt(token string) (time.Time, error) {
	claims, err := v.parse(token)
	if err != nil {
		return time.Time{}, err
	}

	return claims.ExpiresAt.Time, nil
}

// Sign mints a token for actor. The service itself never issues
// credentials; this exists for operator tooling and tests.
func (v *Verifier) Sign(actor models.Actor, ttl time.Duration) (string, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return "", errors.New("actor id is required")
	}

	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}

	now := v.now().UTC()
	claims := Claims{
		Roles: []string{string(actor.Role)},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (v *Verifier) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if err := v.validateClaims(claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

func (v *Verifier) validateClaims(claims *Claims) error {
	if claims.Issuer != v.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.IssuedAt.Time.After(v.now().Add(maxClockSkew)) {
		return errors.New("token issued in the future")
	}
	return nil
}

func highestRole(roles []string) (models.Role, bool) {
	var best models.Role
	for _, raw := range roles {
		role := models.Role(strings.TrimSpace(strings.ToLower(raw)))
		if role.Valid() && role.Rank() > best.Rank() {
			best = role
		}
	}
	return best, best.Valid()
}
