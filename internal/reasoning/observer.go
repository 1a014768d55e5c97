// Package reasoning extracts reasoning deltas from a relayed chat-completion
// stream and coalesces them into line-oriented log emissions.
package reasoning

import (
	"strings"

	"llm-proxy-go/internal/sse"
)

// flushThreshold is the accumulated byte length at which buffered reasoning
// text is pushed to the sink mid-stream.
const flushThreshold = 32

// Observer watches the relayed response bytes for reasoning deltas. Raw
// chunks are framed into events and the extracted text accumulates until the
// buffer reaches the threshold, at which point it is flushed to the sink in
// line-split batches. End of stream flushes once more so nothing below the
// threshold is lost.
// Failures to parse individual events are swallowed; the observer never
// reports errors to the relay. Not safe for concurrent use.
type Observer struct {
	framer *sse.Framer
	sink   Sink
	acc    strings.Builder
}

// NewObserver returns an Observer emitting to sink.
func NewObserver(sink Sink) *Observer {
	return &Observer{
		framer: sse.NewFramer(),
		sink:   sink,
	}
}

// Chunk consumes one raw chunk of the relayed response.
func (o *Observer) Chunk(p []byte) {
	for _, payload := range o.framer.Feed(p) {
		text, ok := ExtractReasoning(payload)
		if !ok {
			continue
		}
		o.acc.WriteString(text)
		if o.acc.Len() >= flushThreshold {
			o.flush()
		}
	}
}

// Finish flushes whatever remains in the accumulator. Called exactly once,
// when the relayed stream ends.
func (o *Observer) Finish() {
	if o.acc.Len() > 0 {
		o.flush()
	}
}

// flush emits the buffered text line by line and clears the buffer.
func (o *Observer) flush() {
	text := o.acc.String()
	o.acc.Reset()
	for _, line := range strings.Split(text, "\n") {
		o.sink.Line(line)
	}
}
