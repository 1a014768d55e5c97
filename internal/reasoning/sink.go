package reasoning

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives extracted reasoning text one line at a time. Implementations
// must not block for long and must not panic; emission is best-effort and its
// outcome is invisible to the relay.
type Sink interface {
	Line(text string)
}

// LogSink emits reasoning lines through slog and counts emissions.
type LogSink struct {
	logger    *slog.Logger
	fragments prometheus.Counter
}

// NewLogSink returns a LogSink. fragments may be nil when metrics are not
// collected.
func NewLogSink(logger *slog.Logger, fragments prometheus.Counter) *LogSink {
	return &LogSink{logger: logger, fragments: fragments}
}

// Line logs one reasoning line at info level.
func (s *LogSink) Line(text string) {
	s.logger.Info("reasoning", "text", text)
	if s.fragments != nil {
		s.fragments.Inc()
	}
}
