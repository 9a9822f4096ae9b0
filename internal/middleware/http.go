package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/capture"
	"github.com/tuncerburak97/munzi/internal/pipeline"
	"github.com/tuncerburak97/munzi/internal/policy"
)

const formURLEncoded = "application/x-www-form-urlencoded"

// HTTP wraps a net/http handler. The handler reads a replayable copy of
// the request body and writes to a buffering writer, except for
// text/event-stream requests, which are written through unbuffered.
func HTTP(p *pipeline.Pipeline, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	pol := p.Policy()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ex := p.Enter(r.Context(), r.Header.Get)
			defer p.Exit(ex)

			ctx := withScope(ex.Context(), p, ex)
			sig := policy.NewSignature(r.Method, r.URL.Path)
			contentType := r.Header.Get("Content-Type")

			body := capture.NewRequestBody(ctx, r.Body, capture.RequestOptions{
				ContentType:     contentType,
				ContentEncoding: r.Header.Get("Content-Encoding"),
				ContentLength:   r.ContentLength,
				MaxSize:         pol.Rules(policy.Request).MaxBodySize,
				Secret:          pol.Secret(policy.Request, sig),
			})
			r = r.WithContext(ctx)
			r.Body = body

			p.BeforeRequest(ex, &pipeline.Request{
				Method:          r.Method,
				Path:            r.URL.Path,
				Headers:         pipeline.HeaderFields(r.Header),
				Params:          pipeline.ParamFields(requestParams(r, contentType, body)),
				ContentType:     contentType,
				ContentLength:   r.ContentLength,
				Body:            body,
				SecurityWrapped: o.securityWrapped(ctx, r.Header.Get),
			})

			res := capture.NewResponse(w, capture.IsStreaming(r.Header.Get("Accept")))
			ex.HandlerStarted()
			next.ServeHTTP(res.Writer(), r)

			p.AfterRequest(ex, &pipeline.Response{
				Status:      res.Status(),
				ContentType: res.ContentType(),
				Headers:     pipeline.HeaderFields(res.Header()),
				Body:        res.Body(),
				Streaming:   res.Streaming(),
			})
			if err := res.Flush(); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to write buffered response")
			}
		})
	}
}

// requestParams merges query parameters with url-encoded form fields.
// Form fields only come from a buffered body; the handler's stream is
// never consumed for them.
func requestParams(r *http.Request, contentType string, body *capture.RequestBody) url.Values {
	values := r.URL.Query()
	if !body.Buffered() {
		return values
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != formURLEncoded {
		return values
	}
	form, err := url.ParseQuery(string(body.Bytes()))
	if err != nil {
		return values
	}
	for k, v := range form {
		values[k] = append(values[k], v...)
	}
	return values
}

// WriteError reports cause on the request's exchange and writes value as
// the JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, value any, cause error) {
	ReportError(r.Context(), value, cause)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to encode error response")
	}
}
