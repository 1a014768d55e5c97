// Package sse incrementally frames a server-sent-event byte stream.
package sse

import (
	"bytes"
	"strings"
)

// doneSentinel is the payload the upstream emits to mark end of generation.
// It carries no data and is dropped during framing.
const doneSentinel = "[DONE]"

var blockDelim = []byte("\n\n")

// Framer reassembles complete event blocks from a stream of arbitrarily split
// byte chunks. It keeps the unterminated tail between feeds, so event
// boundaries (and multi-byte characters) may fall anywhere relative to chunk
// boundaries. A Framer is owned by a single goroutine and is not safe for
// concurrent use.
type Framer struct {
	buf []byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the pending buffer and returns the data payloads of
// every event block completed by this chunk, in stream order. A block is a
// group of lines terminated by a blank line; only lines carrying the "data:"
// prefix contribute payloads. The [DONE] sentinel and empty payloads are
// dropped. Bytes after the last complete block stay buffered for the next
// call; whatever remains when the stream ends is never emitted.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var payloads []string
	for {
		i := bytes.Index(f.buf, blockDelim)
		if i < 0 {
			break
		}
		block := f.buf[:i]
		f.buf = f.buf[i+len(blockDelim):]
		payloads = append(payloads, parseBlock(block)...)
	}
	return payloads
}

// parseBlock extracts the data payloads from one complete event block.
func parseBlock(block []byte) []string {
	var payloads []string
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimPrefix(line, "data:")
		payload = strings.TrimPrefix(payload, " ")
		if payload == "" || payload == doneSentinel {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}
