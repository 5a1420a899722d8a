// Package emailcheck decides whether a typed address is worth sending a code to.
package emailcheck

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-storefront-bot/internal/domain"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// MXChecker reports whether a domain advertises a mail exchanger.
// Implementations are fail-closed: any lookup error is false.
type MXChecker interface {
	HasMailExchanger(ctx context.Context, domain string) bool
}

type Validator struct {
	mx MXChecker
}

func NewValidator(mx MXChecker) *Validator {
	return &Validator{mx: mx}
}

// Validate returns the trimmed address, or an error wrapping domain.ErrInvalidEmail.
// The MX lookup only runs for syntactically valid input.
func (v *Validator) Validate(ctx context.Context, candidate string) (string, error) {
	email := strings.TrimSpace(candidate)
	if !emailRE.MatchString(email) {
		return "", domain.ErrInvalidEmailFormat
	}
	host := email[strings.LastIndexByte(email, '@')+1:]
	if !v.mx.HasMailExchanger(ctx, host) {
		return "", fmt.Errorf("%q: %w", host, domain.ErrUnreachableDomain)
	}
	return email, nil
}
