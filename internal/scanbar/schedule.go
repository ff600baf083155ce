package scanbar

// _targetUpdates is roughly how many visible refreshes a bar gets per run.
const _targetUpdates = 20

// Kind identifies which host callback an event triggers.
type Kind int

const (
	// KindStart relabels the lane as running; its advance is always 0.
	KindStart Kind = iota
	// KindTick advances the lane by one cadence.
	KindTick
	// KindFinish flushes the remainder and marks the lane finished.
	KindFinish
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindTick:
		return "tick"
	case KindFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Event is one host callback fired by the hook.
type Event struct {
	Iter    int
	Kind    Kind
	Advance int
}

// Cadence returns how many iterations pass between bar refreshes:
// max(1, total/20).
func Cadence(total int) int {
	return max(1, total/_targetUpdates)
}

// Remainder returns the iterations left over after the last full cadence,
// flushed on the final iteration.
func Remainder(total int) int {
	return total % Cadence(total)
}

// Events returns the callbacks that fire at iteration iter (1-based) of a
// run with the given total, in the order they fire. The three checks are
// independent, so one iteration can fire several events.
func Events(iter, total int) []Event {
	p := Cadence(total)
	var evs []Event
	if iter == 1 {
		evs = append(evs, Event{Iter: iter, Kind: KindStart, Advance: 0})
	}
	if iter%p == 0 {
		evs = append(evs, Event{Iter: iter, Kind: KindTick, Advance: p})
	}
	if iter == total {
		evs = append(evs, Event{Iter: iter, Kind: KindFinish, Advance: Remainder(total)})
	}
	return evs
}

// Schedule returns every event of a run with the given total.
func Schedule(total int) []Event {
	var evs []Event
	for i := 1; i <= total; i++ {
		evs = append(evs, Events(i, total)...)
	}
	return evs
}
