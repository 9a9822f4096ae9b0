// Package pipeline emits the request, response and error lines of every
// exchange. Host adapters drive it through Enter, BeforeRequest,
// AfterRequest, OnError and Exit; nothing here depends on a framework.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tuncerburak97/munzi/internal/capture"
	"github.com/tuncerburak97/munzi/internal/correlation"
	"github.com/tuncerburak97/munzi/internal/errextract"
	"github.com/tuncerburak97/munzi/internal/metrics"
	"github.com/tuncerburak97/munzi/internal/policy"
)

// Line types, also set as the "type" field of every traffic line.
const (
	TypeRequest    = "REQ"
	TypeResponse   = "RES"
	TypeError      = "ERR"
	TypeStackTrace = "ERR_STACK_TRACE"
)

const noBody = "none"

type Pipeline struct {
	policy  *policy.Policy
	logger  zerolog.Logger
	metrics *metrics.MetricsCollector
	profile string
	host    string
	appName string
	now     func() time.Time
}

type Option func(*Pipeline)

// WithLogger replaces the global zerolog logger as the line sink.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithProfile(profile string) Option {
	return func(p *Pipeline) { p.profile = profile }
}

func WithHostAddress(host string) Option {
	return func(p *Pipeline) { p.host = host }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(pol *policy.Policy, opts ...Option) (*Pipeline, error) {
	if pol == nil {
		return nil, policy.ErrServerNameRequired
	}

	p := &Pipeline{
		policy: pol,
		logger: log.Logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.host == "" {
		p.host = correlation.HostAddress()
	}
	p.appName = correlation.ApplicationName(pol.ServerName, p.profile, p.host)
	return p, nil
}

func (p *Pipeline) Policy() *policy.Policy {
	return p.policy
}

func (p *Pipeline) Metrics() *metrics.MetricsCollector {
	return p.metrics
}

// ApplicationName is the applicationName field stamped on every line.
func (p *Pipeline) ApplicationName() string {
	return p.appName
}

// Enter starts an exchange. The request id comes from the configured
// header when header returns a non-blank value for it.
func (p *Pipeline) Enter(ctx context.Context, header func(string) string) *Exchange {
	return p.enter(ctx, correlation.ResolveRequestID(p.policy.RequestIDHeaderKey, header))
}

func (p *Pipeline) enter(ctx context.Context, requestID string) *Exchange {
	if ctx == nil {
		ctx = context.Background()
	}
	rec := correlation.Record{RequestID: requestID, ApplicationName: p.appName}
	scoped, l := correlation.NewContext(ctx, rec, p.logger)

	p.metrics.IncActiveExchanges()
	return &Exchange{
		parent: ctx,
		ctx:    scoped,
		logger: l,
		record: rec,
		start:  p.now(),
		level:  zerolog.InfoLevel,
		state:  StateEntered,
	}
}

// BeforeRequest emits the request line unless policy suppresses it.
func (p *Pipeline) BeforeRequest(ex *Exchange, req *Request) {
	if ex == nil || req == nil || ex.state != StateEntered {
		return
	}
	ex.sig = policy.NewSignature(req.Method, req.Path)
	ex.method = req.Method
	ex.level = p.policy.Level(ex.sig)
	ex.securityWrapped = req.SecurityWrapped

	if req.Body != nil && req.Body.Err() != nil {
		p.metrics.IncCaptureFailure()
	}

	p.guard(ex, "before_request", func() { p.logRequest(ex, req) })
	ex.state = StateRequestLogged
}

// AfterRequest emits the response line with the time elapsed since Enter.
func (p *Pipeline) AfterRequest(ex *Exchange, res *Response) {
	if ex == nil || res == nil {
		return
	}
	if ex.state != StateRequestLogged && ex.state != StateHandlerRunning {
		return
	}
	elapsed := p.now().Sub(ex.start)

	p.guard(ex, "after_request", func() { p.logResponse(ex, res, elapsed) })
	p.metrics.ObserveExchange(ex.method, res.Status, elapsed)
	ex.state = StateResponseLogged
}

// OnError emits the error record for value, the response representation
// of cause. Only the first call per exchange has an effect.
func (p *Pipeline) OnError(ex *Exchange, value any, cause error) {
	if ex == nil || ex.errorLogged || ex.state == StateExited {
		return
	}
	ex.errorLogged = true
	p.guard(ex, "on_error", func() { p.logError(ex.logger, value, cause) })
}

// Exit tears down the correlation of ex. It is safe to call more than once.
func (p *Pipeline) Exit(ex *Exchange) {
	if ex == nil || ex.state == StateExited {
		return
	}
	ex.state = StateExited
	for i := len(ex.cleanups) - 1; i >= 0; i-- {
		p.guard(ex, "exit", ex.cleanups[i])
	}
	ex.cleanups = nil
	p.metrics.DecActiveExchanges()
}

// RecordRequest writes a request line outside an HTTP exchange. The
// correlation of ctx is kept when it has one; otherwise requestID (or a
// fresh id when blank) is used for this line only.
func (p *Pipeline) RecordRequest(ctx context.Context, req *Request, requestID string) {
	ex := p.enter(ctx, p.adoptID(ctx, requestID))
	defer p.Exit(ex)
	p.BeforeRequest(ex, req)
}

// RecordError writes an error record outside an HTTP exchange and returns
// the request id it was stamped with.
func (p *Pipeline) RecordError(ctx context.Context, value any, cause error) string {
	ex := p.enter(ctx, p.adoptID(ctx, ""))
	defer p.Exit(ex)
	p.OnError(ex, value, cause)
	return ex.record.RequestID
}

func (p *Pipeline) adoptID(ctx context.Context, requestID string) string {
	if ctx != nil {
		if rec, ok := correlation.FromContext(ctx); ok && rec.RequestID != "" {
			return rec.RequestID
		}
	}
	if strings.TrimSpace(requestID) != "" {
		return requestID
	}
	return uuid.NewString()
}

// guard keeps a failing sink from reaching the exchange.
func (p *Pipeline) guard(ex *Exchange, stage string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		p.metrics.IncSinkFailure(stage)
		func() {
			defer func() { _ = recover() }()
			ex.logger.Error().
				Str("stage", stage).
				Interface("panic", r).
				Msg("Traffic logging failed")
		}()
	}()
	fn()
}

func (p *Pipeline) logRequest(ex *Exchange, req *Request) {
	if !p.policy.Active(policy.Request, ex.sig, req.SecurityWrapped) {
		return
	}

	body := p.requestBody(ex.sig, req)
	headers := RenderFields(req.Headers)
	params := RenderFields(req.Params)
	if p.policy.JSONPretty {
		headers = capture.PrettyJSON(headers)
		params = capture.PrettyJSON(params)
		if body.Mode == policy.ModeRaw {
			body.Text = capture.PrettyJSON(body.Text)
		}
	}

	ex.logger.WithLevel(ex.level).
		Str("type", TypeRequest).
		Msgf("REQ > [%s], headers=%s, params=%s, body=%s", ex.sig, headers, params, body)
	p.metrics.IncLine(TypeRequest, ex.level.String(), body.Mode.String())
}

func (p *Pipeline) requestBody(sig policy.Signature, req *Request) policy.Body {
	if req.ContentType == "" || req.ContentLength < 0 {
		return policy.Unavailable()
	}

	var (
		payload   string
		available = true
	)
	switch {
	case capture.IsMultipart(req.ContentType):
		payload = capture.MultipartPlaceholder
	case req.ContentLength == 0:
	case req.Body != nil && req.Body.Buffered():
		payload = requestPayload(req.ContentType, req.Body.Bytes())
	default:
		available = false
	}
	return p.policy.ResolveBody(policy.Request, sig, requestSize(req), payload, available)
}

// requestSize is the declared length unless more bytes were actually read.
func requestSize(req *Request) int64 {
	size := req.ContentLength
	if req.Body != nil && req.Body.Size() > size {
		size = req.Body.Size()
	}
	return size
}

func requestPayload(contentType string, raw []byte) string {
	if isJSON(contentType) {
		return capture.CompactJSON(raw)
	}
	return string(raw)
}

func (p *Pipeline) logResponse(ex *Exchange, res *Response, elapsed time.Duration) {
	if !p.policy.Active(policy.Response, ex.sig, ex.securityWrapped) {
		return
	}

	body := policy.Raw("")
	if res.ContentType != "" {
		payload := capture.Payload(res.ContentType, res.Body)
		body = p.policy.ResolveBody(policy.Response, ex.sig, int64(len(payload)), payload, true)
	}

	headers := RenderFields(res.Headers)
	if p.policy.JSONPretty && isJSON(res.ContentType) {
		headers = capture.PrettyJSON(headers)
		if body.Mode == policy.ModeRaw {
			body.Text = capture.PrettyJSON(body.Text)
		}
	}

	ex.logger.WithLevel(ex.level).
		Str("type", TypeResponse).
		Msgf("RES > %d [%s] %dms, headers=%s, payload=%s", res.Status, ex.sig, elapsed.Milliseconds(), headers, body)
	p.metrics.IncLine(TypeResponse, ex.level.String(), body.Mode.String())
}

func (p *Pipeline) logError(l zerolog.Logger, value any, cause error) {
	rec, ok := errextract.Extract(value, cause)
	if !ok {
		return
	}

	l.Error().
		Str("type", TypeError).
		Msgf(`ERR > httpStatus=%s, errorCode="%s", errorType="%s", message="%s", stackTrace="%s"`,
			rec.Status(), rec.ErrorCode, rec.ErrorType, rec.Message, rec.StackTrace)
	p.metrics.IncLine(TypeError, zerolog.ErrorLevel.String(), noBody)
	p.metrics.IncErrorRecord(rec.HTTPStatus)

	if !p.policy.StackTracePrint || !rec.Verbose() {
		return
	}
	if cause == nil {
		cause = errors.New(rec.Message)
	}
	l.Error().
		Str("type", TypeStackTrace).
		Stack().
		Err(cause).
		Str("detail", fmt.Sprintf("%+v", cause)).
		Msgf(`ERR_STACK_TRACE > httpStatus=%s, errorCode="%s", errorType="%s", message="%s"`,
			rec.Status(), rec.ErrorCode, rec.ErrorType, rec.Message)
	p.metrics.IncLine(TypeStackTrace, zerolog.ErrorLevel.String(), noBody)
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
