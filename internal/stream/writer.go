// ABOUTME: Server-side encoder that writes stream events as data frames
// ABOUTME: Flushes after every frame when the destination supports it

package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Encode returns the wire frame for ev: "data: " + JSON + "\n\n".
func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	frame := make([]byte, 0, len(dataPrefix)+len(payload)+len(frameDelimiter))
	frame = append(frame, dataPrefix...)
	frame = append(frame, payload...)
	frame = append(frame, frameDelimiter...)
	return frame, nil
}

// Writer writes framed events to an underlying writer. It is safe for
// concurrent use; frames are never interleaved.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w is an http.Flusher each frame is flushed.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Write encodes and writes one event.
func (w *Writer) Write(ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}
	return w.writeFrame(frame)
}

// Comment writes a frame that decoders ignore, used as a keep-alive.
func (w *Writer) Comment(text string) error {
	return w.writeFrame([]byte(": " + text + "\n\n"))
}

func (w *Writer) writeFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
