package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/persistorai/caseqc/internal/auth"
	"github.com/persistorai/caseqc/internal/models"
)

var testSecret = strings.Repeat("k", 32)

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims auth.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	return token
}

func validClaims(roles ...string) auth.Claims {
	now := time.Now()
	return auth.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "caseqc",
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestVerifier_SignAndVerify(t *testing.T) {
	v := auth.NewVerifier(testSecret, "caseqc")

	token, err := v.Sign(models.Actor{ID: "alice", Role: models.RoleReviewer}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	actor, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if actor.ID != "alice" || actor.Role != models.RoleReviewer {
		t.Errorf("actor = %+v, want alice/reviewer", actor)
	}

	exp, err := v.ExpiresAt(token)
	if err != nil {
		t.Fatalf("expires at: %v", err)
	}

	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}
}

func TestVerifier_HighestRoleWins(t *testing.T) {
	v := auth.NewVerifier(testSecret, "caseqc")
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user", "Supervisor", "reviewer"))

	actor, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if actor.Role != models.RoleSupervisor {
		t.Errorf("role = %s, want supervisor", actor.Role)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := auth.NewVerifier(testSecret, "caseqc")

	expired := validClaims("reviewer")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := validClaims("reviewer")
	wrongIssuer.Issuer = "someone-else"

	noSubject := validClaims("reviewer")
	noSubject.Subject = ""

	future := validClaims("reviewer")
	future.IssuedAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	future.ExpiresAt = jwt.NewNumericDate(time.Now().Add(2 * time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong secret", token: signClaims(t, jwt.SigningMethodHS256, []byte(strings.Repeat("x", 32)), validClaims("reviewer"))},
		{name: "wrong algorithm", token: signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("reviewer"))},
		{name: "expired", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{name: "wrong issuer", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{name: "no subject", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{name: "issued in future", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), future)},
		{name: "no known role", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("admin"))},
		{name: "no roles", token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.token)
			if !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("Verify error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifier_SignValidation(t *testing.T) {
	v := auth.NewVerifier(testSecret, "caseqc")

	if _, err := v.Sign(models.Actor{Role: models.RoleReviewer}, time.Hour); err == nil {
		t.Error("expected error for missing actor id")
	}

	if _, err := v.Sign(models.Actor{ID: "a", Role: models.RoleReviewer}, 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}
