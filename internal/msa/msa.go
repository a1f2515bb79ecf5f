// Package msa defines the boundary to the Microsoft identity client: the
// external collaborator that runs the interactive browser login and the
// refresh-token exchange. This package only declares the contract; the
// embedding launcher supplies the implementation.
package msa

import (
	"context"
	"errors"

	"github.com/lanterne-launcher/lanterne/internal/account"
)

// ErrCancelled is returned by Login when the user closes the consent
// window without completing the flow. It is distinct from a failure.
var ErrCancelled = errors.New("login cancelled by user")

// Client performs the network half of authentication. Calls may block for
// an unbounded time (Login is user-interactive); cancellation, if any, is
// driven through the context.
//
// Both methods return either a token bundle, a *ProviderError carrying the
// provider's structured error payload, or a plain transport error. Login
// additionally returns ErrCancelled on explicit user cancellation.
type Client interface {
	Login(ctx context.Context) (*account.Raw, error)
	Refresh(ctx context.Context, auth *account.Authenticator) (*account.Raw, error)
}

// ProviderError is a structured error payload returned by the identity
// provider, as opposed to a transport failure.
type ProviderError struct {
	// Code is the provider's error identifier, e.g. "invalid_grant".
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	// Type is "network" when the provider flagged a connectivity problem.
	Type string `json:"error_type,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Network reports whether the payload signals a transient network problem
// rather than a fatal auth failure. This is the sole signal separating
// "retry later" from "re-login required".
func (e *ProviderError) Network() bool {
	return e.Type == "network"
}
