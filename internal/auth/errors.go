package auth

import "errors"

// The closed set of auth failure kinds. Callers match with errors.Is; the
// provider's structured payload, when present, stays reachable through
// errors.As on *msa.ProviderError.
var (
	// ErrAuthRequired is returned when an operation needs an account and
	// none is stored or active.
	ErrAuthRequired = errors.New("no account signed in")

	// ErrAccountNotFound is returned by SelectAccount for an unknown uuid.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNetwork marks a transient transport or provider-flagged network
	// failure. The stored account is left untouched; the call may be
	// retried.
	ErrNetwork = errors.New("network error during authentication")

	// ErrLoginCancelled is returned when the user closed the consent
	// window. Distinct from a failure; nothing is persisted.
	ErrLoginCancelled = errors.New("login cancelled by user")

	// ErrReloginRequired is returned when the provider rejected the
	// refresh token as invalid or expired. The account has been evicted
	// from the store; a fresh interactive login is required.
	ErrReloginRequired = errors.New("session expired or invalid, re-login required")

	// ErrRefreshFailed is the fallback for provider error payloads that
	// are neither network-related nor refresh rejections.
	ErrRefreshFailed = errors.New("authentication failed")
)
