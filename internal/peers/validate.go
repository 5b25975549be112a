package peers

import (
	"time"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/validate"
)

// ValidateForm runs the submit-time format checks over a peer form. The
// returned map is empty when the form is acceptable. Expiry date and time
// arrive as the raw sub-field inputs because their combination rule (both
// or neither, date not in the past) lives here, not in the widgets.
func ValidateForm(p domain.Peer, expiryDate, expiryTime string, now time.Time) domain.FieldErrors {
	errs := domain.FieldErrors{}
	check := func(f validate.Field, value string) {
		if msg := validate.Submit(f, value); msg != "" {
			errs[f.String()] = msg
		}
	}
	check(validate.FieldPublicKey, p.PublicKey)
	check(validate.FieldIPv4, p.IPv4)
	check(validate.FieldSessionID, p.SessionID)
	check(validate.FieldInstallationID, p.InstallationID)
	if msg := validate.Expiry(expiryDate, expiryTime, now); msg != "" {
		errs["expires"] = msg
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
