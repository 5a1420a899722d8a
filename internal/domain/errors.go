package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so the chat and HTTP layers can pick a user-facing message
// without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidEmail is the parent of every address rejection. Users only ever
	// see one message for it, so DNS probing results are not exposed.
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidEmailFormat = fmt.Errorf("%w: malformed address", ErrInvalidEmail)
	ErrUnreachableDomain  = fmt.Errorf("%w: domain has no mail exchanger", ErrInvalidEmail)

	// ErrChallengeFailed is the parent of every code rejection.
	ErrChallengeFailed   = errors.New("challenge failed")
	ErrNoActiveChallenge = fmt.Errorf("%w: no active challenge", ErrChallengeFailed)
	ErrCodeMismatch      = fmt.Errorf("%w: code mismatch", ErrChallengeFailed)

	ErrDelivery       = errors.New("email delivery failed")
	ErrUnknownService = errors.New("unknown service")
	ErrNotVerified    = errors.New("email not verified")
)
