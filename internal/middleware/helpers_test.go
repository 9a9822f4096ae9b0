package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/munzi/internal/config"
	"github.com/tuncerburak97/munzi/internal/metrics"
	"github.com/tuncerburak97/munzi/internal/pipeline"
	"github.com/tuncerburak97/munzi/internal/policy"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var l map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l), sc.Text())
		out = append(out, l)
	}
	return out
}

// trafficLines keeps the REQ/RES/ERR lines in emission order.
func (b *syncBuffer) trafficLines(t *testing.T) []map[string]any {
	var out []map[string]any
	for _, l := range b.lines(t) {
		if _, ok := l["type"]; ok {
			out = append(out, l)
		}
	}
	return out
}

func types(lines []map[string]any) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l["type"].(string))
	}
	return out
}

func newTestPipeline(t *testing.T, mutate func(*config.APILogConfig)) (*pipeline.Pipeline, *syncBuffer, *metrics.MetricsCollector) {
	t.Helper()
	cfg := config.APILogConfig{
		ServerName:         "munzi",
		RequestIDHeaderKey: "X-Request-ID",
		Request: config.TrafficConfig{
			MaxBodySize: "1KB",
			SecretAPI:   []string{"POST /hello/secret"},
		},
		Response: config.TrafficConfig{MaxBodySize: "1KB"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	pol, err := policy.New(cfg)
	require.NoError(t, err)

	buf := &syncBuffer{}
	m := metrics.NewMetricsCollector("munzi", "test")
	p, err := pipeline.New(pol,
		pipeline.WithLogger(zerolog.New(buf)),
		pipeline.WithMetrics(m),
		pipeline.WithProfile("test"),
		pipeline.WithHostAddress("127.0.0.1"),
	)
	require.NoError(t, err)
	return p, buf, m
}
