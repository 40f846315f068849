package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"trustline/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format.
// The requested destination state doubles as the event name, so edges
// sharing a destination collapse into a single EventDesc with multiple
// source states (e.g. "returned" is reachable from both "purchased" and
// "delivered").
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	grouped := make(map[domain.State][]string)
	order := make([]domain.State, 0)

	for _, t := range domain.Transitions {
		if _, exists := grouped[t.Dst]; !exists {
			order = append(order, t.Dst)
		}
		grouped[t.Dst] = append(grouped[t.Dst], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized with
// the product's current state. This is necessary because looplab/fsm is
// stateful (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks whether requested is reachable from current and returns
// the resulting state. An illegal move yields a domain.TransitionError;
// a current state outside the defined set yields a
// domain.DataIntegrityError, since it can only come from corrupted
// persisted data.
func (v *Validator) Apply(ctx context.Context, current, requested domain.State) (domain.State, error) {
	if !domain.KnownState(current) {
		return "", &domain.DataIntegrityError{State: current}
	}

	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(requested)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{
				From: current,
				To:   requested,
			}
		}
		return "", err
	}

	return domain.State(machine.Current()), nil
}
