package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshMargin is subtracted from the token's remaining validity so the
// refresh fires comfortably before real expiry.
const RefreshMargin = 30 * time.Second

// Lifetime returns how long the token remains usable from now, with the
// refresh margin already subtracted. Zero means missing, malformed, or
// already (effectively) expired. The signature is deliberately not checked:
// the server is the authority, the client only needs the exp claim to
// schedule its refresh.
func Lifetime(token string, now time.Time) time.Duration {
	if token == "" {
		return 0
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	life := claims.ExpiresAt.Time.Sub(now) - RefreshMargin
	if life < 0 {
		return 0
	}
	return life
}
