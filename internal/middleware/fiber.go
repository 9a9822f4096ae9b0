package middleware

import (
	"bytes"
	"errors"
	"io"
	"mime"

	"github.com/gofiber/fiber/v2"
	"github.com/tuncerburak97/munzi/internal/capture"
	"github.com/tuncerburak97/munzi/internal/correlation"
	"github.com/tuncerburak97/munzi/internal/pipeline"
	"github.com/tuncerburak97/munzi/internal/policy"
)

// localsCarrier exposes the correlation fields as c.Locals. fiber reuses
// *fiber.Ctx values, so they are removed when the exchange exits.
type localsCarrier struct {
	c *fiber.Ctx
}

func (l localsCarrier) Set(key string, value any) {
	l.c.Locals(key, value)
}

// Fiber is the fiber counterpart of HTTP. Errors returned by the rest of
// the chain are handed to the app's ErrorHandler here, so the error record
// is written before the response line.
func Fiber(p *pipeline.Pipeline, opts ...Option) fiber.Handler {
	o := newOptions(opts)
	pol := p.Policy()

	return func(c *fiber.Ctx) error {
		parent := c.UserContext()
		header := func(key string) string { return c.Get(key) }
		ex := p.Enter(parent, header)
		defer p.Exit(ex)

		ex.OnExit(correlation.Push(localsCarrier{c: c}, ex.Record()))
		ctx := withScope(ex.Context(), p, ex)
		c.SetUserContext(ctx)
		ex.OnExit(func() { c.SetUserContext(parent) })

		method, path := c.Method(), c.Path()
		sig := policy.NewSignature(method, path)
		contentType := c.Get(fiber.HeaderContentType)
		contentLength := int64(c.Request().Header.ContentLength())
		if contentLength < 0 {
			contentLength = -1
		}

		// Wire bytes only: c.Body() would decode a compressed body.
		var body *capture.RequestBody
		if !c.Request().IsBodyStream() {
			body = capture.NewRequestBody(ctx, io.NopCloser(bytes.NewReader(c.Request().Body())), capture.RequestOptions{
				ContentType:     contentType,
				ContentEncoding: c.Get(fiber.HeaderContentEncoding),
				ContentLength:   contentLength,
				MaxSize:         pol.Rules(policy.Request).MaxBodySize,
				Secret:          pol.Secret(policy.Request, sig),
			})
		}

		p.BeforeRequest(ex, &pipeline.Request{
			Method:          method,
			Path:            path,
			Headers:         fiberRequestHeaders(c),
			Params:          fiberParams(c, contentType, body),
			ContentType:     contentType,
			ContentLength:   contentLength,
			Body:            body,
			SecurityWrapped: o.securityWrapped(ctx, header),
		})

		ex.HandlerStarted()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			if !ex.ErrorLogged() {
				p.OnError(ex, fiberErrorValue(c, err), err)
			}
		}

		p.AfterRequest(ex, fiberResponse(c))
		return nil
	}
}

func fiberRequestHeaders(c *fiber.Ctx) []pipeline.Field {
	var fields []pipeline.Field
	c.Request().Header.VisitAll(func(k, v []byte) {
		fields = append(fields, pipeline.Field{Key: string(k), Value: string(v)})
	})
	return fields
}

// fiberParams lists query arguments, then url-encoded form fields of a
// buffered body, in arrival order. The first value of a key wins.
func fiberParams(c *fiber.Ctx, contentType string, body *capture.RequestBody) []pipeline.Field {
	var fields []pipeline.Field
	seen := make(map[string]bool)
	add := func(k, v []byte) {
		key := string(k)
		if seen[key] {
			return
		}
		seen[key] = true
		fields = append(fields, pipeline.Field{Key: key, Value: string(v)})
	}

	c.Request().URI().QueryArgs().VisitAll(add)
	if body != nil && body.Buffered() {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == formURLEncoded {
			c.Request().PostArgs().VisitAll(add)
		}
	}
	return fields
}

func fiberResponse(c *fiber.Ctx) *pipeline.Response {
	resp := c.Response()
	streaming := capture.IsStreaming(c.Get(fiber.HeaderAccept)) || resp.IsBodyStream()

	var headers []pipeline.Field
	resp.Header.VisitAll(func(k, v []byte) {
		headers = append(headers, pipeline.Field{Key: string(k), Value: string(v)})
	})

	res := &pipeline.Response{
		Status:      resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Headers:     headers,
		Streaming:   streaming,
	}
	if !streaming {
		res.Body = resp.Body()
	}
	return res
}

// fiberErrorValue is the error value of chains whose ErrorHandler did not
// report one itself.
func fiberErrorValue(c *fiber.Ctx, err error) map[string]any {
	value := map[string]any{
		"status":  c.Response().StatusCode(),
		"message": err.Error(),
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		value["message"] = fe.Message
	}
	return value
}
