package simulator

import (
	"time"

	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// hugeReplayFactor is substituted for any replay_factor <= 0. Since
// TargetRealTime divides elapsed sim time by replayFactor, a large
// divisor collapses the projected wait to effectively zero: "as fast
// as possible" replay.
const hugeReplayFactor = 1e6

// TimeSlip cross-references a point in simulated time to the wall-clock
// instant it was observed, letting throttled replay project any later
// simulated timestamp onto a target wall-clock time.
type TimeSlip struct {
	SimTm0  xtime.Timestamp
	RealTm0 xtime.Timestamp
}

// TargetRealTime projects simTm onto the wall-clock time it should be
// dispatched at, given replayFactor.
func (ts TimeSlip) TargetRealTime(simTm xtime.Timestamp, replayFactor float64) xtime.Timestamp {
	elapsed := simTm.Sub(ts.SimTm0)
	scaled := xtime.Duration(int64(float64(elapsed) / replayFactor))
	return ts.RealTm0.Add(scaled)
}

// RunThrottledUntil pins simulated progress to wall-clock progress: for
// each event at simulated time t_sim, it sleeps until the wall-clock
// time that t_sim projects to under replayFactor before dispatching.
// Sleeps shorter than 1ms are skipped as below the OS scheduler's
// useful resolution. Terminates when the heap empties, n_max events
// have been dispatched (if n_max > 0), or the next timestamp exceeds
// t1 (if t1 is after t0).
//
// replayFactor is a sim-speed multiplier relative to real time: 1
// replays at wall-clock pace, 2 twice as fast, 0.5 half as fast.
// replayFactor <= 0 is coerced to hugeReplayFactor, giving "as fast as
// possible" replay without dividing by zero.
func (s *Simulator) RunThrottledUntil(t1 xtime.Timestamp, nMax int, replayFactor float64) int {
	if replayFactor <= 0 {
		replayFactor = hugeReplayFactor
	}

	simTm0, ok := s.NextTimestamp()
	if !ok {
		return 0
	}
	slip := TimeSlip{SimTm0: simTm0, RealTm0: xtime.Now()}

	total := 0
	boundedByT1 := t1.After(s.t0)

	for {
		tSim, ok := s.NextTimestamp()
		if !ok {
			break
		}
		if nMax > 0 && total >= nMax {
			break
		}
		if boundedByT1 && tSim.After(t1) {
			break
		}

		target := slip.TargetRealTime(tSim, replayFactor)
		now := xtime.Now()
		if target.After(now) {
			sleepFor := target.Sub(now).AsStdlib()
			if sleepFor >= time.Millisecond {
				s.bus.Publish(diag.Event{
					Source: diag.SourceSimulator,
					Kind:   diag.KindThrottleSleep,
					Data:   map[string]any{"sleep_ms": sleepFor.Milliseconds(), "sim_tm": tSim.String()},
				})
				time.Sleep(sleepFor)
			}
		}

		total += s.RunOne()
	}

	s.bus.Publish(diag.Event{
		Source: diag.SourceSimulator,
		Kind:   diag.KindRunComplete,
		Data:   map[string]any{"n_event": total, "last_tm": s.LastTm().String()},
	})

	return total
}
