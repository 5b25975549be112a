package notify

// Canonical notification prefixes and texts shared by the stores.
const (
	PrefixAuthError    = "authError"
	PrefixRefreshError = "refreshError"
	PrefixTimeoutError = "timeoutError"
	PrefixServiceInfo  = "serviceInfo"

	MsgIncorrectPassword = "Incorrect password"
	MsgRefreshFailed     = "Authentication error is occurred"
	MsgServiceReloaded   = "Service reloaded"
	MsgReloadTimedOut    = "Something went wrong. Service was not reloaded"
)
