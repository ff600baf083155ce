package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ndisidore/scanbar/pkg/slogctx"
)

// Plain emits bar changes as slog messages.
// The slog handler (pretty/json/text) decides how to render.
type Plain struct {
	// Log overrides the logger taken from the Start context.
	Log *slog.Logger

	mu  sync.Mutex
	ctx context.Context //nolint:containedctx // carried from Start to bar log calls
	log *slog.Logger
}

var _ Display = (*Plain)(nil)

// Start records the logger bars will write to.
func (p *Plain) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	p.log = p.Log
	if p.log == nil {
		p.log = slogctx.FromContext(ctx)
	}
	return nil
}

// Attach returns a bar that logs its transitions.
func (p *Plain) Attach(lane, total int) (Bar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.log == nil {
		return nil, ErrNotStarted
	}
	return &plainBar{ctx: p.ctx, log: p.log, lane: lane, total: total}, nil
}

// Seal is a no-op for Plain; every bar logs synchronously.
func (*Plain) Seal() {}

// Wait returns immediately for Plain.
func (*Plain) Wait() error { return nil }

type plainBar struct {
	ctx   context.Context //nolint:containedctx // see Plain.ctx
	log   *slog.Logger
	lane  int
	total int

	mu     sync.Mutex
	desc   string
	n      int
	closed bool
}

func (b *plainBar) attrs(event string) []slog.Attr {
	return []slog.Attr{
		slog.String("event", event),
		slog.Int("lane", b.lane),
		slog.Int("n", b.n),
		slog.Int("total", b.total),
	}
}

func (b *plainBar) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || desc == b.desc {
		return
	}
	b.desc = desc
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	b.log.LogAttrs(b.ctx, slog.LevelInfo, fmt.Sprintf("[lane %d] %s", b.lane, desc), b.attrs("bar.describe")...)
}

func (b *plainBar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || n == 0 {
		return
	}
	b.n += n
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	b.log.LogAttrs(b.ctx, slog.LevelInfo, fmt.Sprintf("[lane %d] %s %d/%d", b.lane, b.desc, b.n, b.total), b.attrs("bar.advance")...)
}

func (b *plainBar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	b.log.LogAttrs(b.ctx, slog.LevelInfo, fmt.Sprintf("[lane %d] done %d/%d", b.lane, b.n, b.total), b.attrs("bar.close")...)
}
