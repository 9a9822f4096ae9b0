// Package policy decides whether and how request and response traffic is
// logged for a given route signature.
//
// A Policy is compiled once from configuration and never mutated, so it is
// shared by reference across concurrent requests without locking.
package policy

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/bytesize"
	"github.com/tuncerburak97/munzi/internal/config"
)

// ErrServerNameRequired is the configuration error raised when
// api_log.server_name is blank. Traffic must not be processed without it.
var ErrServerNameRequired = errors.New("api_log.server_name is required")

// Wildcard marks a prefix pattern such as "GET /api/*".
const Wildcard = "*"

type Direction int

const (
	Request Direction = iota
	Response
)

func (d Direction) String() string {
	if d == Response {
		return "response"
	}
	return "request"
}

// Signature is the "METHOD /path" unit every pattern list is matched against.
type Signature string

func NewSignature(method, path string) Signature {
	return Signature(method + " " + path)
}

// Matches reports whether sig is listed in patterns, either exactly or by
// the prefix in front of a wildcard. A wildcard with nothing in front of it
// never matches.
func Matches(patterns []string, sig Signature) bool {
	s := string(sig)
	for _, pattern := range patterns {
		if pattern == s {
			return true
		}
		idx := strings.Index(pattern, Wildcard)
		if idx <= 0 {
			continue
		}
		if strings.HasPrefix(s, pattern[:idx]) {
			return true
		}
	}
	return false
}

// Rules is the compiled per-direction section of the configuration.
type Rules struct {
	MaxBodySize int64
	SecretAPI   []string
	InactiveAPI []string
}

type Policy struct {
	ServerName         string
	IgnoreSecurityLog  bool
	Use                bool
	JSONPretty         bool
	RequestIDHeaderKey string
	StackTracePrint    bool
	DebugAPI           []string

	request  Rules
	response Rules
}

// New compiles cfg into an immutable Policy.
func New(cfg config.APILogConfig) (*Policy, error) {
	if strings.TrimSpace(cfg.ServerName) == "" {
		return nil, ErrServerNameRequired
	}

	return &Policy{
		ServerName:         cfg.ServerName,
		IgnoreSecurityLog:  cfg.IgnoreSecurityLog,
		Use:                cfg.Use,
		JSONPretty:         cfg.JSONPretty,
		RequestIDHeaderKey: strings.TrimSpace(cfg.RequestIDHeaderKey),
		StackTracePrint:    cfg.StackTracePrintYn,
		DebugAPI:           clone(cfg.DebugAPI),
		request:            compileRules(cfg.Request),
		response:           compileRules(cfg.Response),
	}, nil
}

func compileRules(cfg config.TrafficConfig) Rules {
	return Rules{
		MaxBodySize: bytesize.ParseOrDefault(cfg.MaxBodySize, bytesize.DefaultMaxBodySize),
		SecretAPI:   clone(cfg.SecretAPI),
		InactiveAPI: clone(cfg.InactiveAPI),
	}
}

func clone(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func (p *Policy) Rules(d Direction) Rules {
	if d == Response {
		return p.response
	}
	return p.request
}

// Active reports whether the direction is logged at all for sig.
func (p *Policy) Active(d Direction, sig Signature, securityWrapped bool) bool {
	if Matches(p.Rules(d).InactiveAPI, sig) {
		return false
	}
	if securityWrapped && !p.IgnoreSecurityLog {
		return false
	}
	return true
}

// Secret reports whether bodies of sig are hidden in direction d.
func (p *Policy) Secret(d Direction, sig Signature) bool {
	return Matches(p.Rules(d).SecretAPI, sig)
}

// Capped reports whether a body of size bytes exceeds the direction's
// limit. Response limits are only enforced when Use is set.
func (p *Policy) Capped(d Direction, size int64) bool {
	if d == Response && !p.Use {
		return false
	}
	return size > p.Rules(d).MaxBodySize
}

// ResolveBody picks the logged representation of a body. Secret wins over
// the size cap, which wins over the raw payload. Both only need size, so
// they apply even when the payload itself was not captured.
func (p *Policy) ResolveBody(d Direction, sig Signature, size int64, payload string, available bool) Body {
	switch {
	case p.Secret(d, sig):
		return Secret(size)
	case p.Capped(d, size):
		return SizeOnly(size)
	case !available:
		return Unavailable()
	default:
		return Raw(payload)
	}
}

func (p *Policy) Level(sig Signature) zerolog.Level {
	if Matches(p.DebugAPI, sig) {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
