package kalman

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/xoreactor/xo-reactor/internal/diag"
)

// Spec bundles an initial extended state and a step-builder: the
// indirection that lets step matrices depend on elapsed time and on
// which observations are present.
type Spec struct {
	Init  *ExtState
	Build StepBuilder
	Mode  Mode
}

// Filter encapsulates a kalman engine run together with diagnostic
// event publication. It retains only the most recent extended state
// and the step specification; prior states are not cached.
type Filter struct {
	mu sync.Mutex

	spec    Spec
	current *ExtState

	logger *slog.Logger
	bus    *diag.Bus
}

// New constructs a Filter from spec. logger and bus may be nil.
func New(spec Spec, logger *slog.Logger, bus *diag.Bus) *Filter {
	return &Filter{
		spec:    spec,
		current: spec.Init,
		logger:  logger,
		bus:     bus,
	}
}

// StepNo returns the most recent state's step number.
func (flt *Filter) StepNo() uint32 {
	flt.mu.Lock()
	defer flt.mu.Unlock()
	return flt.current.StepNo
}

// Current returns the most recent extended state.
func (flt *Filter) Current() *ExtState {
	flt.mu.Lock()
	defer flt.mu.Unlock()
	return flt.current
}

// NotifyInput advances the filter by one step using input, which must
// have Tkp1 >= the current state's timestamp. On return, Current()
// reflects the new state.
func (flt *Filter) NotifyInput(input *Input) (*ExtState, error) {
	flt.mu.Lock()
	defer flt.mu.Unlock()

	if input.Tkp1.Before(flt.current.Tm) {
		return nil, fmt.Errorf("kalman: input timestamp %v precedes current state timestamp %v", input.Tkp1, flt.current.Tm)
	}

	next, err := Step(flt.current, input, flt.spec.Build, flt.spec.Mode, flt.bus)
	if err != nil {
		return nil, err
	}

	flt.current = next

	if flt.logger != nil {
		flt.logger.Debug("kalman step",
			"step_no", next.StepNo, "tm", next.Tm.String(),
			"j", next.ObsIndex, "numerical_failure", next.NumericalFailure)
	}

	return next, nil
}
