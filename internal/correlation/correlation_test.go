package correlation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationName(t *testing.T) {
	assert.Equal(t, "munzi-dev 10.0.0.1", ApplicationName("munzi", "dev", "10.0.0.1"))
	assert.Equal(t, "dev 10.0.0.1", ApplicationName("", "dev", "10.0.0.1"))
	assert.Equal(t, "dev 10.0.0.1", ApplicationName("  ", "dev", "10.0.0.1"))
}

func TestResolveRequestID(t *testing.T) {
	header := func(key string) string {
		if key == "X-Request-ID" {
			return "abc-123"
		}
		return ""
	}

	assert.Equal(t, "abc-123", ResolveRequestID("X-Request-ID", header))

	generated := ResolveRequestID("X-Other", header)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	generated = ResolveRequestID("", header)
	_, err = uuid.Parse(generated)
	assert.NoError(t, err)

	blank := func(string) string { return "   " }
	assert.NotEqual(t, "   ", ResolveRequestID("X-Request-ID", blank))
}

func TestNewContext_StampsLogLines(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	rec := Record{RequestID: "req-1", ApplicationName: "munzi-dev 10.0.0.1"}

	ctx, _ := NewContext(context.Background(), rec, base)
	zerolog.Ctx(ctx).Info().Msg("inside")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[RequestIDKey])
	assert.Equal(t, "munzi-dev 10.0.0.1", entry[ApplicationNameKey])

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

type mapCarrier map[string]any

func (m mapCarrier) Set(key string, value any) {
	if value == nil {
		delete(m, key)
		return
	}
	m[key] = value
}

func TestPush_PopRemovesKeys(t *testing.T) {
	carrier := mapCarrier{"other": 1}
	pop := Push(carrier, Record{RequestID: "r", ApplicationName: "a"})

	assert.Equal(t, "r", carrier[RequestIDKey])
	assert.Equal(t, "a", carrier[ApplicationNameKey])

	pop()
	assert.NotContains(t, carrier, RequestIDKey)
	assert.NotContains(t, carrier, ApplicationNameKey)
	assert.Contains(t, carrier, "other")
}

func TestPush_PopRunsOnPanic(t *testing.T) {
	carrier := mapCarrier{}
	errBoom := errors.New("boom")

	func() {
		defer func() { assert.Equal(t, errBoom, recover()) }()
		pop := Push(carrier, Record{RequestID: "r", ApplicationName: "a"})
		defer pop()
		panic(errBoom)
	}()

	assert.Empty(t, carrier)
}

func TestHostAddress(t *testing.T) {
	ip := net.ParseIP(HostAddress())
	require.NotNil(t, ip)
	assert.NotNil(t, ip.To4())
}
