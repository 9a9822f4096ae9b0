package capture

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
)

// EventStream is the Accept value that switches response buffering off.
const EventStream = "text/event-stream"

// IsStreaming reports whether a request with this Accept header expects a
// server-sent event stream.
func IsStreaming(accept string) bool {
	return strings.EqualFold(strings.TrimSpace(accept), EventStream)
}

// Response wraps an http.ResponseWriter. In buffered mode everything the
// handler writes is held back until Flush; in streaming mode writes go
// straight to the client and only the status is observed.
type Response struct {
	w         http.ResponseWriter
	wrapped   http.ResponseWriter
	streaming bool

	status  int
	buf     bytes.Buffer
	flushed bool
	written int64
}

func NewResponse(w http.ResponseWriter, streaming bool) *Response {
	r := &Response{w: w, streaming: streaming}
	if streaming {
		r.wrapped = httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					r.setStatus(code)
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(p []byte) (int, error) {
					r.setStatus(http.StatusOK)
					n, err := next(p)
					r.written += int64(n)
					return n, err
				}
			},
		})
		return r
	}

	r.wrapped = httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return r.setStatus
		},
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(p []byte) (int, error) {
				r.setStatus(http.StatusOK)
				return r.buf.Write(p)
			}
		},
		ReadFrom: func(httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				r.setStatus(http.StatusOK)
				return r.buf.ReadFrom(src)
			}
		},
		Flush: func(httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return func() {}
		},
	})
	return r
}

func (r *Response) setStatus(code int) {
	if r.status == 0 {
		r.status = code
	}
}

// Writer is what the handler writes to.
func (r *Response) Writer() http.ResponseWriter {
	return r.wrapped
}

func (r *Response) Streaming() bool {
	return r.streaming
}

func (r *Response) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Body is the buffered payload; always empty when streaming.
func (r *Response) Body() []byte {
	return r.buf.Bytes()
}

func (r *Response) Header() http.Header {
	return r.w.Header()
}

// ContentType is the declared content type, or the sniffed one net/http
// would send for the buffered body.
func (r *Response) ContentType() string {
	if ct := r.w.Header().Get("Content-Type"); ct != "" {
		return ct
	}
	if !r.streaming && r.buf.Len() > 0 {
		return http.DetectContentType(r.buf.Bytes())
	}
	return ""
}

// Written is the number of bytes sent while streaming.
func (r *Response) Written() int64 {
	return r.written
}

// Flush sends the status and buffered body to the client exactly once.
// It is a no-op in streaming mode.
func (r *Response) Flush() error {
	if r.streaming || r.flushed {
		return nil
	}
	r.flushed = true

	if r.buf.Len() > 0 && r.w.Header().Get("Content-Type") == "" {
		r.w.Header().Set("Content-Type", http.DetectContentType(r.buf.Bytes()))
	}
	r.w.WriteHeader(r.Status())
	_, err := r.w.Write(r.buf.Bytes())
	return err
}
