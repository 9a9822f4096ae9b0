package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/capture"
	"github.com/tuncerburak97/munzi/internal/correlation"
	"github.com/tuncerburak97/munzi/internal/policy"
)

type State int

const (
	StateEntered State = iota
	StateRequestLogged
	StateHandlerRunning
	StateResponseLogged
	StateExited
)

func (s State) String() string {
	switch s {
	case StateEntered:
		return "entered"
	case StateRequestLogged:
		return "request_logged"
	case StateHandlerRunning:
		return "handler_running"
	case StateResponseLogged:
		return "response_logged"
	default:
		return "exited"
	}
}

// Request is what the host adapter captured from the inbound request.
type Request struct {
	Method        string
	Path          string
	Headers       []Field
	Params        []Field
	ContentType   string
	ContentLength int64 // -1 when unknown
	Body          *capture.RequestBody

	// SecurityWrapped marks requests already wrapped by an auth layer.
	SecurityWrapped bool
}

// Response is the handler's outcome as seen after it returned.
type Response struct {
	Status      int
	ContentType string
	Headers     []Field
	Body        []byte
	Streaming   bool
}

// Exchange is the logging state of one request. It belongs to the
// goroutine serving that request and is not safe for concurrent use.
type Exchange struct {
	parent context.Context
	ctx    context.Context
	logger zerolog.Logger
	record correlation.Record
	start  time.Time

	sig             policy.Signature
	method          string
	level           zerolog.Level
	securityWrapped bool

	state       State
	errorLogged bool
	cleanups    []func()
}

// Context carries the correlation record and logger until Exit; afterwards
// it is the context the exchange was entered with.
func (e *Exchange) Context() context.Context {
	if e.state == StateExited {
		return e.parent
	}
	return e.ctx
}

func (e *Exchange) Logger() *zerolog.Logger {
	return &e.logger
}

func (e *Exchange) Record() correlation.Record {
	return e.record
}

func (e *Exchange) State() State {
	return e.state
}

func (e *Exchange) Signature() policy.Signature {
	return e.sig
}

func (e *Exchange) ErrorLogged() bool {
	return e.errorLogged
}

// HandlerStarted records that control passed to the wrapped handler.
func (e *Exchange) HandlerStarted() {
	if e.state == StateRequestLogged {
		e.state = StateHandlerRunning
	}
}

// OnExit registers fn to run when the exchange exits, latest first.
func (e *Exchange) OnExit(fn func()) {
	e.cleanups = append(e.cleanups, fn)
}
