// Package middleware drives the traffic pipeline from net/http and fiber.
package middleware

import (
	"context"

	"github.com/tuncerburak97/munzi/internal/pipeline"
)

// SecurityDetector reports whether a request has been wrapped by an
// authentication layer. Such requests are only logged when the policy
// sets ignore_security_log.
type SecurityDetector func(ctx context.Context, header func(string) string) bool

type options struct {
	security SecurityDetector
}

type Option func(*options)

func WithSecurityDetector(d SecurityDetector) Option {
	return func(o *options) { o.security = d }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) securityWrapped(ctx context.Context, header func(string) string) bool {
	return o.security != nil && o.security(ctx, header)
}

type scopeKey struct{}

type scope struct {
	p  *pipeline.Pipeline
	ex *pipeline.Exchange
}

func withScope(ctx context.Context, p *pipeline.Pipeline, ex *pipeline.Exchange) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope{p: p, ex: ex})
}

// ExchangeFromContext returns the exchange a request context belongs to.
func ExchangeFromContext(ctx context.Context) (*pipeline.Exchange, bool) {
	s, ok := ctx.Value(scopeKey{}).(scope)
	if !ok {
		return nil, false
	}
	return s.ex, true
}

// ReportError emits the error record of the exchange ctx belongs to.
// value is the response representation of cause. It returns false when
// ctx is not part of an exchange.
func ReportError(ctx context.Context, value any, cause error) bool {
	s, ok := ctx.Value(scopeKey{}).(scope)
	if !ok {
		return false
	}
	s.p.OnError(s.ex, value, cause)
	return true
}
