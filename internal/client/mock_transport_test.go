// ABOUTME: Pipe-backed fake Transport for controller tests
// ABOUTME: Each Open hands the test a writer it can stream frames into

package client

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/curphey/fpl-sub000/internal/stream"
)

type fakeStream struct {
	req ChatRequest
	r   *io.PipeReader
	w   *io.PipeWriter
	sw  *stream.Writer
}

// send writes events; it returns once the controller has read them.
func (s *fakeStream) send(t *testing.T, events ...stream.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, s.sw.Write(ev))
	}
}

// finish ends the response body.
func (s *fakeStream) finish() {
	s.w.Close()
}

type pipeTransport struct {
	opened chan *fakeStream
	err    error
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{opened: make(chan *fakeStream, 8)}
}

func (p *pipeTransport) Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if p.err != nil {
		return nil, p.err
	}
	r, w := io.Pipe()
	s := &fakeStream{req: req, r: r, w: w, sw: stream.NewWriter(w)}
	p.opened <- s
	return r, nil
}

func (p *pipeTransport) next(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-p.opened:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("transport was never opened")
		return nil
	}
}
