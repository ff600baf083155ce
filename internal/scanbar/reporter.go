// Package scanbar advances per-lane progress bars from inside scan loops.
//
// Loop bodies never touch a bar directly. The hook sends each event
// through a synchronous tap to the host goroutine running Serve, which
// owns the bars and the completion set.
package scanbar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ndisidore/scanbar/internal/progress"
	"github.com/ndisidore/scanbar/pkg/scan"
	"github.com/ndisidore/scanbar/pkg/slogctx"
	"github.com/ndisidore/scanbar/pkg/tap"
)

// Sentinel errors for reporter construction and host callbacks.
var (
	ErrInvalidTotal = errors.New("total iterations must be at least 1")
	ErrInvalidLanes = errors.New("lane count must be at least 1")
	ErrNilDisplay   = errors.New("display must not be nil")
	ErrUnknownLane  = errors.New("lane out of range")
	ErrLaneFinished = errors.New("lane already finished")
	ErrInvalidLabel = errors.New("running label must contain one %d verb")
	errUnknownKind  = errors.New("unknown event kind")
)

const (
	// CompilingLabel is every bar's label until its lane reaches iteration 1.
	CompilingLabel = "Compiling.. "

	_defaultRunningFmt = "Warmup %d"
)

// Config holds parameters for a Reporter.
type Config struct {
	// Total is the number of iterations every lane runs.
	Total int
	// Lanes is the number of parallel lanes, each with its own bar.
	Lanes int
	// Display creates the bars.
	Display progress.Display
	// RunningLabel formats a lane's label after its first iteration. It
	// receives the lane id; defaults to "Warmup %d".
	RunningLabel string
}

// tapEvent is what crosses the tap: the event plus where it came from.
type tapEvent struct {
	src Source
	ev  Event
}

// Reporter owns the bars for one run.
// Bars, the completion set and the counter are only touched by Serve.
type Reporter struct {
	total     int
	cadence   int
	remainder int
	label     string

	bars     []progress.Bar
	finished []bool
	nDone    int

	tap *tap.Tap[tapEvent]
	log *slog.Logger
}

// New validates cfg and attaches one bar per lane, each labelled
// CompilingLabel.
func New(ctx context.Context, cfg Config) (*Reporter, error) {
	if cfg.Total < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTotal, cfg.Total)
	}
	if cfg.Lanes < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLanes, cfg.Lanes)
	}
	if cfg.Display == nil {
		return nil, ErrNilDisplay
	}
	label := cfg.RunningLabel
	if label == "" {
		label = _defaultRunningFmt
	}
	if err := CheckLabel(label); err != nil {
		return nil, err
	}

	r := &Reporter{
		total:     cfg.Total,
		cadence:   Cadence(cfg.Total),
		remainder: Remainder(cfg.Total),
		label:     label,
		bars:      make([]progress.Bar, cfg.Lanes),
		finished:  make([]bool, cfg.Lanes),
		tap:       tap.New[tapEvent](cfg.Lanes),
		log:       slogctx.FromContext(ctx),
	}
	for lane := range r.bars {
		b, err := cfg.Display.Attach(lane, cfg.Total)
		if err != nil {
			return nil, fmt.Errorf("attaching bar for lane %d: %w", lane, err)
		}
		b.SetDescription(CompilingLabel)
		r.bars[lane] = b
	}
	r.log.LogAttrs(ctx, slog.LevelDebug, "reporter ready",
		slog.Int("total", r.total),
		slog.Int("lanes", cfg.Lanes),
		slog.Int("cadence", r.cadence),
		slog.Int("remainder", r.remainder),
	)
	return r, nil
}

// CheckLabel reports whether label is a usable running label: exactly one
// %d verb, with %% allowed as a literal percent.
func CheckLabel(label string) error {
	var n int
	for i := 0; i < len(label)-1; i++ {
		if label[i] != '%' {
			continue
		}
		switch label[i+1] {
		case '%':
			i++
		case 'd':
			n++
			i++
		default:
			return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

// Total returns the iteration count per lane.
func (r *Reporter) Total() int { return r.total }

// Cadence returns the refresh interval in iterations.
func (r *Reporter) Cadence() int { return r.cadence }

// Remainder returns the amount flushed on the final iteration.
func (r *Reporter) Remainder() int { return r.remainder }

// Lanes returns the number of lanes.
func (r *Reporter) Lanes() int { return len(r.bars) }

// Hook is called by a lane once per iteration. Every event that fires at
// iter is handed to the host in order, and Hook waits for each one to be
// applied. The first failure aborts the remaining events. Iterations
// outside [1, Total] fire nothing.
func (r *Reporter) Hook(ctx context.Context, src Source, iter int) error {
	if iter < 1 || iter > r.total {
		r.log.LogAttrs(ctx, slog.LevelDebug, "iteration outside run",
			slog.Int("iter", iter),
			slog.Int("total", r.total),
		)
		return nil
	}
	for _, ev := range Events(iter, r.total) {
		if err := r.tap.Send(ctx, tapEvent{src: src, ev: ev}); err != nil {
			return fmt.Errorf("iteration %d %s: %w", iter, ev.Kind, err)
		}
	}
	return nil
}

// Serve applies hook events to the bars until Close is called, ctx is done,
// or an event cannot be applied. It must run on exactly one goroutine.
func (r *Reporter) Serve(ctx context.Context) error {
	return r.tap.Serve(ctx, r.handle)
}

// Close stops Serve. Hooks called afterwards fail with tap.ErrClosed.
func (r *Reporter) Close() { r.tap.Close() }

// Run serves events while fn runs once per lane, then stops serving.
// A positive parallelism caps the lanes running at once.
func (r *Reporter) Run(ctx context.Context, parallelism int, fn func(ctx context.Context, lane int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.Serve(gctx); err != nil {
			return fmt.Errorf("serving progress: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer r.Close()
		return scan.Lanes(gctx, len(r.bars), parallelism, fn)
	})
	return g.Wait()
}

// Finished reports whether every lane has finished.
// Only meaningful once Serve has returned.
func (r *Reporter) Finished() bool { return r.nDone == len(r.bars) }

func (r *Reporter) handle(te tapEvent) error {
	lane, err := te.src.Resolve()
	if err != nil {
		return err
	}
	if lane < 0 || lane >= len(r.bars) {
		return fmt.Errorf("%w: lane %d, have %d lanes", ErrUnknownLane, lane, len(r.bars))
	}

	switch te.ev.Kind {
	case KindStart, KindTick:
		return r.update(lane, te.ev.Advance)
	case KindFinish:
		return r.finish(lane, te.ev.Advance)
	default:
		return fmt.Errorf("%w: %d", errUnknownKind, te.ev.Kind)
	}
}

// update relabels lane as running and advances it by n.
func (r *Reporter) update(lane, n int) error {
	if r.finished[lane] {
		return fmt.Errorf("%w: lane %d", ErrLaneFinished, lane)
	}
	b := r.bars[lane]
	b.SetDescription(fmt.Sprintf(r.label, lane))
	b.Add(n)
	return nil
}

// finish flushes n, marks lane finished and closes every bar once the last
// lane finishes.
func (r *Reporter) finish(lane, n int) error {
	if r.finished[lane] {
		return fmt.Errorf("%w: lane %d", ErrLaneFinished, lane)
	}
	r.bars[lane].Add(n)
	r.finished[lane] = true
	r.nDone++
	r.log.Debug("lane finished", slog.Int("lane", lane), slog.Int("done", r.nDone))

	if r.nDone == len(r.bars) {
		for _, b := range r.bars {
			b.Close()
		}
		r.log.Debug("all lanes finished", slog.Int("lanes", len(r.bars)))
	}
	return nil
}

// Decorate wraps body so the reporter's hook runs before every step. index
// extracts the 1-based iteration number from the step input; use
// scan.Iteration for a bare index or scan.First for a scan.Step. The
// wrapped body's carry and output are returned untouched.
func Decorate[C, X, Y any](r *Reporter, src Source, index func(X) int, body scan.Body[C, X, Y]) scan.Body[C, X, Y] {
	return func(ctx context.Context, carry C, x X) (C, Y, error) {
		if err := r.Hook(ctx, src, index(x)); err != nil {
			var zero Y
			return carry, zero, err
		}
		return body(ctx, carry, x)
	}
}
