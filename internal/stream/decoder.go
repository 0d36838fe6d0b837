// ABOUTME: Incremental frame decoder for the "data: <json>\n\n" chat stream
// ABOUTME: Reassembles frames split across reads and yields events lazily

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

const readBufferSize = 4096

var (
	frameDelimiter = []byte("\n\n")
	dataPrefix     = []byte("data: ")
)

// Decoder turns raw stream bytes into events. It keeps the unterminated tail
// of the input between calls to Feed. The zero value is ready to use.
//
// Splitting happens on bytes, so a multi-byte UTF-8 sequence cut by a read
// boundary stays in the buffer until its frame is complete.
type Decoder struct {
	buf     []byte
	dropped int
}

// Feed appends chunk to the buffer and returns every event completed by it,
// in arrival order.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)

	var events []Event
	consumed := 0
	for {
		i := bytes.Index(d.buf[consumed:], frameDelimiter)
		if i < 0 {
			break
		}
		frame := d.buf[consumed : consumed+i]
		consumed += i + len(frameDelimiter)

		if ev, ok := d.decodeFrame(frame); ok {
			events = append(events, ev)
		}
	}

	if consumed > 0 {
		d.buf = append(d.buf[:0], d.buf[consumed:]...)
	}
	return events
}

// Buffered returns the number of bytes held waiting for a delimiter.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Dropped returns how many data frames were discarded as malformed JSON.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// decodeFrame parses one delimited frame. Frames without the data prefix are
// comments or keep-alives; frames whose JSON does not parse are dropped.
func (d *Decoder) decodeFrame(frame []byte) (Event, bool) {
	if !bytes.HasPrefix(frame, dataPrefix) {
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal(frame[len(dataPrefix):], &ev); err != nil {
		d.dropped++
		return Event{}, false
	}
	return ev, true
}

// Decode yields the events contained in a sequence of byte chunks. Each call
// uses a fresh Decoder; the sequence ends when chunks is exhausted.
func Decode(chunks iter.Seq[[]byte]) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		var d Decoder
		for chunk := range chunks {
			for _, ev := range d.Feed(chunk) {
				if !yield(ev) {
					return
				}
			}
		}
	}
}

// Parse reads r until end of stream and yields its events. A read error other
// than io.EOF is yielded once and ends the sequence. The end of the sequence
// does not imply that a done event was seen.
func Parse(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		var d Decoder
		buf := make([]byte, readBufferSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, ev := range d.Feed(buf[:n]) {
					if !yield(ev, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
		}
	}
}
