// Package validate holds the client-side form validation rules. Each field
// is an enumerated constant and every rule is resolved with an exhaustive
// switch, so a field without a rule is a compile-time hole rather than a
// silent lookup miss.
package validate

import (
	"regexp"
	"time"
	"unicode"
)

// Field identifies a form input subject to validation.
type Field int

const (
	FieldLabel Field = iota
	FieldPublicKey
	FieldIPv4
	FieldSessionID
	FieldInstallationID
	FieldKeyID
	FieldKeyText
)

func (f Field) String() string {
	switch f {
	case FieldLabel:
		return "label"
	case FieldPublicKey:
		return "public_key"
	case FieldIPv4:
		return "ipv4"
	case FieldSessionID:
		return "session_id"
	case FieldInstallationID:
		return "installation_id"
	case FieldKeyID:
		return "id"
	case FieldKeyText:
		return "key"
	}
	return "unknown"
}

var (
	base64Padded = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	dottedQuad   = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	uuidShape    = regexp.MustCompile(`^[0-9a-fA-F]{8}-([0-9a-fA-F]{4}-){3}[0-9a-fA-F]{12}$`)
)

const (
	msgRequired       = "This field is required"
	msgBadPublicKey   = "Invalid public key format"
	msgBadIPv4        = "Invalid IPV4 format"
	msgBadUUID        = "Invalid UUID format"
	msgKeyChars       = "Only letters, digits and symbols +/= are allowed"
	msgIPv4Chars      = "Only digits and dots are allowed"
	msgHexChars       = "Only hexadecimal digits and symbol - are allowed"
	msgExpiryPast     = "Expiration date must not be in the past"
	msgExpiryHalfSet  = "Set both expiration date and time, or neither"
	msgExpiryBadInput = "Invalid expiration date or time"
)

// AllowsRune reports whether typing r into the field is accepted. A rejected
// keystroke keeps the previous value instead of surfacing a submit error.
func AllowsRune(f Field, r rune) bool {
	switch f {
	case FieldLabel:
		return unicode.IsPrint(r)
	case FieldPublicKey:
		return r == '+' || r == '=' || r == '/' ||
			(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
	case FieldIPv4:
		return r == '.' || (r >= '0' && r <= '9')
	case FieldSessionID, FieldInstallationID, FieldKeyID:
		return r == '-' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	case FieldKeyText:
		return unicode.IsPrint(r) || r == '\n'
	}
	return false
}

// RuneHint is the message explaining a rejected keystroke.
func RuneHint(f Field) string {
	switch f {
	case FieldLabel, FieldKeyText:
		return ""
	case FieldPublicKey:
		return msgKeyChars
	case FieldIPv4:
		return msgIPv4Chars
	case FieldSessionID, FieldInstallationID, FieldKeyID:
		return msgHexChars
	}
	return ""
}

// Submit runs the field's format check on the final value. An empty return
// means valid; anything else is the inline error text.
func Submit(f Field, value string) string {
	switch f {
	case FieldLabel:
		return ""
	case FieldPublicKey:
		if value == "" {
			return msgRequired
		}
		if !base64Padded.MatchString(value) {
			return msgBadPublicKey
		}
		return ""
	case FieldIPv4:
		if value == "" {
			return ""
		}
		if !dottedQuad.MatchString(value) {
			return msgBadIPv4
		}
		return ""
	case FieldSessionID, FieldInstallationID:
		if value == "" {
			return ""
		}
		if !uuidShape.MatchString(value) {
			return msgBadUUID
		}
		return ""
	case FieldKeyID:
		if value == "" {
			return msgRequired
		}
		if !uuidShape.MatchString(value) {
			return msgBadUUID
		}
		return ""
	case FieldKeyText:
		if value == "" {
			return msgRequired
		}
		return ""
	}
	return ""
}

// Expiry validates the date+time pair of the peer expiration form. Both
// empty means "no expiry" and is valid; both set is valid when the date is
// today or later; a half-set pair or a past date is an error.
func Expiry(date, clock string, now time.Time) string {
	if date == "" && clock == "" {
		return ""
	}
	if date == "" || clock == "" {
		return msgExpiryHalfSet
	}
	day, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return msgExpiryBadInput
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return msgExpiryBadInput
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return msgExpiryPast
	}
	return ""
}

// CombineExpiry builds the expiry timestamp from validated date and time
// inputs. Returns nil when both are empty.
func CombineExpiry(date, clock string, loc *time.Location) *time.Time {
	if date == "" || clock == "" {
		return nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil
	}
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return nil
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
	return &at
}
