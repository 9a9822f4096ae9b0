package capture

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStreaming(t *testing.T) {
	assert.True(t, IsStreaming("text/event-stream"))
	assert.True(t, IsStreaming(" Text/Event-Stream "))
	assert.False(t, IsStreaming("application/json"))
	assert.False(t, IsStreaming("text/event-stream, application/json"))
	assert.False(t, IsStreaming(""))
}

func TestResponse_BuffersUntilFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	res := NewResponse(rec, false)

	w := res.Writer()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusTeapot)
	_, err := io.WriteString(w, `{"name": "munzi"}`)
	require.NoError(t, err)
	w.(http.Flusher).Flush()

	assert.Empty(t, rec.Body.String())
	assert.False(t, rec.Flushed)
	assert.Equal(t, http.StatusCreated, res.Status())
	assert.Equal(t, `{"name": "munzi"}`, string(res.Body()))

	require.NoError(t, res.Flush())
	require.NoError(t, res.Flush())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"name": "munzi"}`, rec.Body.String())
}

func TestResponse_DefaultStatusAndSniffedType(t *testing.T) {
	rec := httptest.NewRecorder()
	res := NewResponse(rec, false)
	_, _ = res.Writer().Write([]byte("plain words"))

	assert.Equal(t, http.StatusOK, res.Status())
	assert.Equal(t, "text/plain; charset=utf-8", res.ContentType())

	require.NoError(t, res.Flush())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestResponse_CopyIsBuffered(t *testing.T) {
	rec := httptest.NewRecorder()
	res := NewResponse(rec, false)

	n, err := io.Copy(res.Writer(), strings.NewReader("copied"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "copied", string(res.Body()))
}

func TestResponse_StreamingReachesClientBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	done := make(chan *Response, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := NewResponse(w, true)
		sw := res.Writer()
		sw.Header().Set("Content-Type", EventStream)
		fmt.Fprint(sw, "data: first\n\n")
		sw.(http.Flusher).Flush()
		<-release
		fmt.Fprint(sw, "data: second\n\n")
		done <- res
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", EventStream)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	lineCh := make(chan string, 1)
	go func() {
		line, _ := reader.ReadString('\n')
		lineCh <- line
	}()

	select {
	case line := <-lineCh:
		assert.Equal(t, "data: first\n", line)
	case <-time.After(5 * time.Second):
		t.Fatal("first event was withheld until the handler finished")
	}
	close(release)

	res := <-done
	assert.True(t, res.Streaming())
	assert.Equal(t, http.StatusOK, res.Status())
	assert.Empty(t, res.Body())
	assert.Equal(t, int64(len("data: first\n\ndata: second\n\n")), res.Written())
	assert.NoError(t, res.Flush())
}
