package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestLifetime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"malformed", "not.a.jwt", 0},
		{"expired", signedToken(t, now.Add(-time.Minute)), 0},
		{"inside margin", signedToken(t, now.Add(10*time.Second)), 0},
		{"one minute out", signedToken(t, now.Add(time.Minute)), 30 * time.Second},
		{"ten minutes out", signedToken(t, now.Add(10*time.Minute)), 10*time.Minute - RefreshMargin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Lifetime(tc.token, now); got != tc.want {
				t.Fatalf("Lifetime = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLifetimeNoExpClaim(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin"})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if got := Lifetime(s, time.Now()); got != 0 {
		t.Fatalf("token without exp must have zero lifetime, got %v", got)
	}
}
