// Package capture makes request and response bodies readable by the
// traffic logger without taking them away from the handler or the client.
package capture

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const readChunk = 4 * 1024

// RequestOptions are the facts the buffering decision is made on.
type RequestOptions struct {
	ContentType     string
	ContentEncoding string
	ContentLength   int64
	MaxSize         int64
	Secret          bool
}

// Bufferable reports whether a body with these options is read into memory.
// Bodies without a content type, multipart or content-encoded bodies,
// secret routes, unknown or empty lengths and bodies over MaxSize pass
// through untouched.
func (o RequestOptions) Bufferable() bool {
	switch {
	case o.ContentType == "":
		return false
	case IsMultipart(o.ContentType):
		return false
	case IsEncoded(o.ContentEncoding):
		return false
	case o.Secret:
		return false
	case o.ContentLength <= 0:
		return false
	case o.ContentLength > o.MaxSize:
		return false
	}
	return true
}

// RequestBody replaces an inbound body. When buffered, the handler reads
// an independent copy of exactly the bytes handed to the logger.
type RequestBody struct {
	src      io.ReadCloser
	reader   io.Reader
	raw      []byte
	size     int64
	buffered bool
	overflow bool
	err      error
}

// NewRequestBody decides once whether to buffer src. At most MaxSize
// bytes are held: a body that turns out longer than the cap, whatever its
// declared length, passes through and is only counted. A read failure
// while buffering is logged on the context logger and the body degrades
// to pass-through: the handler still receives the bytes read so far
// followed by the same error.
func NewRequestBody(ctx context.Context, src io.ReadCloser, opts RequestOptions) *RequestBody {
	if src == nil {
		src = io.NopCloser(bytes.NewReader(nil))
	}
	b := &RequestBody{src: src, reader: src}
	if !opts.Bufferable() {
		return b
	}

	var buf bytes.Buffer
	buf.Grow(int(opts.ContentLength))
	n, err := io.CopyBuffer(&buf, io.LimitReader(src, opts.MaxSize+1), make([]byte, readChunk))
	b.size = n
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Int64("content_length", opts.ContentLength).
			Msg("Failed to buffer request body for logging")
		b.err = err
		b.reader = io.MultiReader(bytes.NewReader(buf.Bytes()), &errReader{err: err})
		return b
	}

	if n > opts.MaxSize {
		b.overflow = true
		b.reader = io.MultiReader(bytes.NewReader(buf.Bytes()), src)
		return b
	}

	b.raw = buf.Bytes()
	b.buffered = true
	b.reader = bytes.NewReader(b.raw)
	return b
}

func (b *RequestBody) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *RequestBody) Close() error {
	return b.src.Close()
}

// Buffered reports whether Bytes holds the complete body.
func (b *RequestBody) Buffered() bool {
	return b.buffered
}

// Overflowed reports whether more than MaxSize bytes arrived for a body
// whose declared length was within the cap.
func (b *RequestBody) Overflowed() bool {
	return b.overflow
}

// Size is the number of bytes read while buffering. For an overflowed
// body it is MaxSize+1, a lower bound of the real length.
func (b *RequestBody) Size() int64 {
	return b.size
}

// Bytes returns the buffered body. It must not be modified.
func (b *RequestBody) Bytes() []byte {
	return b.raw
}

// Err is the read error hit while buffering, if any.
func (b *RequestBody) Err() error {
	return b.err
}

// Reopen returns a fresh reader over the buffered body, positioned at the
// start regardless of how much of b has been consumed.
func (b *RequestBody) Reopen() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b.raw))
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}

func IsMultipart(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "multipart/")
}

// IsEncoded reports whether a Content-Encoding header value means the
// body on the wire is not the payload itself.
func IsEncoded(contentEncoding string) bool {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	return enc != "" && enc != "identity"
}
