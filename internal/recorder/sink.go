package recorder

import "github.com/xoreactor/xo-reactor/internal/kalman"

// Sink adapts a Recorder as a reactor.Sink[*kalman.ExtState]: every
// extended state it receives is appended to the recorder's pending
// snapshot via ObserveStep. It exists so a filter's output can be
// wired to persistence the same way any other source/sink pair in the
// system is wired, without the filter itself importing recorder.
type Sink struct {
	rec *Recorder
}

// NewSink wraps rec as a sink.
func NewSink(rec *Recorder) *Sink {
	return &Sink{rec: rec}
}

// NotifyEvent records ev for inclusion in the next snapshot.
func (s *Sink) NotifyEvent(ev *kalman.ExtState) error {
	s.rec.ObserveStep(ev)
	return nil
}
