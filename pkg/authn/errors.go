package authn

import "errors"

// Resolution failure taxonomy. All of these are collapsed to
// ErrUnauthenticated at the authenticator boundary; the distinctions exist
// for logs and metrics only, never for the client.
var (
	ErrUnknownCredential = errors.New("unknown credential")
	ErrTenantDisabled    = errors.New("tenant disabled")
	ErrModeMismatch      = errors.New("credential mode mismatch")
	ErrInvalidToken      = errors.New("invalid dashboard token")
	ErrExpired           = errors.New("dashboard token expired")

	// ErrUnauthenticated is the only authentication failure a client
	// ever sees.
	ErrUnauthenticated = errors.New("unauthenticated")
)
