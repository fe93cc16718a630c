package recorder

import (
	"fmt"

	"github.com/xoreactor/xo-reactor/internal/kalman"
	"github.com/xoreactor/xo-reactor/internal/simulator"
)

// SimulatorHook saves a run-complete summary once a simulator run
// finishes: a note with the simulator's dispatched-event count, its
// last dispatched timestamp and the filter's final step number,
// alongside everything already accumulated via a subscribed diag.Bus
// or an attached Sink.
type SimulatorHook struct {
	rec *Recorder
}

// NewSimulatorHook wraps rec for end-of-run persistence.
func NewSimulatorHook(rec *Recorder) *SimulatorHook {
	return &SimulatorHook{rec: rec}
}

// Save persists everything the recorder has accumulated so far plus a
// note summarizing the run, tagged TriggerRunComplete.
func (h *SimulatorHook) Save(sim *simulator.Simulator, flt *kalman.Filter) (*Record, error) {
	note := fmt.Sprintf("n_event=%d last_tm=%s final_step=%d",
		sim.NEvent(), sim.LastTm().String(), flt.StepNo())
	return h.rec.CreateRunComplete(note)
}
