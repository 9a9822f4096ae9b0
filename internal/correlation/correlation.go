// Package correlation carries the per-request identifier and application
// tag that every log line of a request is stamped with.
package correlation

import (
	"context"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log field names, also used as carrier keys.
const (
	RequestIDKey       = "requestId"
	ApplicationNameKey = "applicationName"
)

type Record struct {
	RequestID       string
	ApplicationName string
}

// ApplicationName joins "<serverName>-<profile> <host>", dropping the
// server part when it is blank.
func ApplicationName(serverName, profile, host string) string {
	name := profile + " " + host
	if strings.TrimSpace(serverName) != "" {
		name = serverName + "-" + name
	}
	return name
}

// ResolveRequestID takes the id from headerKey when configured and present,
// otherwise it generates a random one.
func ResolveRequestID(headerKey string, header func(string) string) string {
	if headerKey != "" && header != nil {
		if id := strings.TrimSpace(header(headerKey)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

type recordCtxKey struct{}

// NewContext attaches rec to ctx together with a child of logger that
// carries the correlation fields, so zerolog.Ctx(ctx) lines are stamped.
func NewContext(ctx context.Context, rec Record, logger zerolog.Logger) (context.Context, zerolog.Logger) {
	l := logger.With().
		Str(RequestIDKey, rec.RequestID).
		Str(ApplicationNameKey, rec.ApplicationName).
		Logger()
	ctx = context.WithValue(ctx, recordCtxKey{}, rec)
	return l.WithContext(ctx), l
}

func FromContext(ctx context.Context) (Record, bool) {
	rec, ok := ctx.Value(recordCtxKey{}).(Record)
	return rec, ok
}

// Carrier is a per-request slot that outlives the request, such as the
// locals of a pooled framework context. Setting nil removes a key.
type Carrier interface {
	Set(key string, value any)
}

// Push stores rec on c and returns the function that removes it again.
// Callers defer the returned func so it runs on every exit path.
func Push(c Carrier, rec Record) (pop func()) {
	c.Set(RequestIDKey, rec.RequestID)
	c.Set(ApplicationNameKey, rec.ApplicationName)
	return func() {
		c.Set(RequestIDKey, nil)
		c.Set(ApplicationNameKey, nil)
	}
}

// HostAddress returns the first non-loopback IPv4 address of this host.
func HostAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
