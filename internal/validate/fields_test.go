package validate

import (
	"testing"
	"time"
)

func TestAllowsRune(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		r     rune
		want  bool
	}{
		{"ipv4 digit", FieldIPv4, '7', true},
		{"ipv4 dot", FieldIPv4, '.', true},
		{"ipv4 letter", FieldIPv4, 'a', false},
		{"ipv4 space", FieldIPv4, ' ', false},
		{"pubkey base64", FieldPublicKey, '/', true},
		{"pubkey padding", FieldPublicKey, '=', true},
		{"pubkey dash", FieldPublicKey, '-', false},
		{"uuid hex", FieldKeyID, 'f', true},
		{"uuid dash", FieldKeyID, '-', true},
		{"uuid out of range", FieldKeyID, 'g', false},
		{"label anything printable", FieldLabel, 'ü', true},
		{"key text newline", FieldKeyText, '\n', true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := AllowsRune(tc.field, tc.r); got != tc.want {
				t.Fatalf("AllowsRune(%v, %q) = %v, want %v", tc.field, tc.r, got, tc.want)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		field   Field
		value   string
		wantErr bool
	}{
		{"label empty ok", FieldLabel, "", false},
		{"pubkey valid", FieldPublicKey, "bXkgcHVibGljIGtleQ==", false},
		{"pubkey empty required", FieldPublicKey, "", true},
		{"pubkey bad chars", FieldPublicKey, "not a key!", true},
		{"pubkey too much padding", FieldPublicKey, "abcd===", true},
		{"ipv4 empty ok", FieldIPv4, "", false},
		{"ipv4 valid", FieldIPv4, "10.123.0.7", false},
		{"ipv4 octet overflow", FieldIPv4, "10.123.0.256", true},
		{"ipv4 truncated", FieldIPv4, "10.123.0", true},
		{"session id empty ok", FieldSessionID, "", false},
		{"session id valid", FieldSessionID, "3f2c7a1e-9b4d-4c1a-8e2f-0a1b2c3d4e5f", false},
		{"session id malformed", FieldSessionID, "not-a-uuid", true},
		{"key id empty required", FieldKeyID, "", true},
		{"key id valid", FieldKeyID, "3F2C7A1E-9B4D-4C1A-8E2F-0A1B2C3D4E5F", false},
		{"key text empty required", FieldKeyText, "", true},
		{"key text anything", FieldKeyText, "whatever", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := Submit(tc.field, tc.value)
			if (msg != "") != tc.wantErr {
				t.Fatalf("Submit(%v, %q) = %q, wantErr=%v", tc.field, tc.value, msg, tc.wantErr)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		date    string
		clock   string
		wantErr string
	}{
		{"both empty", "", "", ""},
		{"date only", "2026-09-01", "", msgExpiryHalfSet},
		{"time only", "", "10:00", msgExpiryHalfSet},
		{"future", "2026-09-01", "10:00", ""},
		{"today", "2026-08-30", "00:00", ""},
		{"past", "2026-08-29", "10:00", msgExpiryPast},
		{"garbage date", "not-a-date", "10:00", msgExpiryBadInput},
		{"garbage time", "2026-09-01", "25:99", msgExpiryBadInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Expiry(tc.date, tc.clock, now); got != tc.wantErr {
				t.Fatalf("Expiry(%q, %q) = %q, want %q", tc.date, tc.clock, got, tc.wantErr)
			}
		})
	}
}

func TestCombineExpiry(t *testing.T) {
	t.Parallel()

	if got := CombineExpiry("", "", time.UTC); got != nil {
		t.Fatalf("empty inputs must combine to nil, got %v", got)
	}
	got := CombineExpiry("2026-09-01", "18:30", time.UTC)
	if got == nil {
		t.Fatal("expected a timestamp")
	}
	want := time.Date(2026, 9, 1, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("combined %v, want %v", got, want)
	}
}
