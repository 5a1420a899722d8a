// Package dns answers whether a domain accepts mail.
package dns

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
)

type mxResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Checker is fail-closed: timeouts, NXDOMAIN and malformed answers all mean false.
type Checker struct {
	resolver mxResolver
	timeout  time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	return &Checker{resolver: net.DefaultResolver, timeout: timeout}
}

func (c *Checker) HasMailExchanger(ctx context.Context, domain string) bool {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		slog.Debug("mx lookup failed", "domain", domain, "err", err)
		return false
	}
	for _, mx := range records {
		// A single "." host is a null MX (RFC 7505): the domain accepts no mail.
		if mx != nil && strings.TrimSuffix(mx.Host, ".") != "" {
			return true
		}
	}
	return false
}
