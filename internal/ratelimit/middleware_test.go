package ratelimit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/munzi/internal/config"
	"github.com/tuncerburak97/munzi/internal/middleware"
	"github.com/tuncerburak97/munzi/internal/pipeline"
	"github.com/tuncerburak97/munzi/internal/policy"
)

func TestMiddleware_RejectionIsLogged(t *testing.T) {
	pol, err := policy.New(config.APILogConfig{ServerName: "munzi"})
	require.NoError(t, err)
	var buf bytes.Buffer
	p, err := pipeline.New(pol, pipeline.WithLogger(zerolog.New(&buf)), pipeline.WithHostAddress("127.0.0.1"))
	require.NoError(t, err)

	s, _, _ := newTestService(t, testRateLimitConfig())

	app := fiber.New()
	app.Use(middleware.Fiber(p))
	app.Use(Middleware(s))
	app.Post("/hello", func(c *fiber.Ctx) error { return c.SendString("ok") })

	first, err := app.Test(httptest.NewRequest(http.MethodPost, "/hello", nil))
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "0", first.Header.Get(HeaderRateRemaining))

	buf.Reset()
	second, err := app.Test(httptest.NewRequest(http.MethodPost, "/hello", nil))
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "60", second.Header.Get(HeaderRetryAfter))

	var types, messages []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		if typ, ok := line["type"].(string); ok {
			types = append(types, typ)
			messages = append(messages, line["message"].(string))
		}
	}
	require.Equal(t, []string{"REQ", "ERR", "RES"}, types)
	assert.Contains(t, messages[1], "ERR > httpStatus=429, ")
	assert.Contains(t, messages[1], `message="rate limit exceeded"`)
}
