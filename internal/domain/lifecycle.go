package domain

// SaveState tags where an entity sits in its client-side lifecycle. It
// replaces the old convention of encoding "unsaved" in the sign of the id:
// the id stays a plain identifier and every lifecycle decision matches on
// this tag instead.
type SaveState int

const (
	// SaveStateDraft exists only in the console; nothing was sent yet.
	SaveStateDraft SaveState = iota
	// SaveStatePending has a save in flight.
	SaveStatePending
	// SaveStatePersisted was acknowledged by the server.
	SaveStatePersisted
	// SaveStateFailed was rejected; the entry keeps the user's input plus
	// the per-field server errors so the form can be redisplayed.
	SaveStateFailed
)

func (s SaveState) String() string {
	switch s {
	case SaveStateDraft:
		return "draft"
	case SaveStatePending:
		return "pending"
	case SaveStatePersisted:
		return "persisted"
	case SaveStateFailed:
		return "failed"
	}
	return "unknown"
}

// Unsaved reports whether the entry exists only on the client.
func (s SaveState) Unsaved() bool {
	return s != SaveStatePersisted
}

// FieldErrors maps a form field name (or "common") to the server's
// rejection text for it.
type FieldErrors map[string]string
