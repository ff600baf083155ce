package progress

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI renders lane bars using a bubbletea interactive terminal display.
type TUI struct {
	Boring bool // use ASCII bar glyphs

	opts []tea.ProgramOption // extra program options, set by tests

	mu      sync.Mutex
	prog    *tea.Program
	result  chan error
	started bool
	sealed  bool
}

var _ Display = (*TUI)(nil)

// Start launches the bubbletea program. Calling Start twice is a no-op.
func (t *TUI) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	m := newModel(t.Boring)
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, t.opts...)
	t.prog = tea.NewProgram(m, opts...)
	t.result = make(chan error, 1)
	t.started = true

	go func() {
		final, err := t.prog.Run()
		if err != nil {
			t.result <- fmt.Errorf("running TUI: %w", err)
			return
		}
		if fm, ok := final.(*model); ok && !fm.done {
			// Quit without Seal means the user interrupted.
			t.result <- fmt.Errorf("running TUI: %w", context.Canceled)
			return
		}
		t.result <- nil
	}()
	return nil
}

// Attach registers lane's bar with the program.
func (t *TUI) Attach(lane, total int) (Bar, error) {
	t.mu.Lock()
	p := t.prog
	t.mu.Unlock()
	if p == nil {
		return nil, ErrNotStarted
	}
	p.Send(barAddedMsg{lane: lane, total: total})
	return &tuiBar{prog: p, lane: lane}, nil
}

// Seal tells the program to render its final frame and exit.
// It is safe to call more than once, and before Start.
func (t *TUI) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || t.sealed {
		return
	}
	t.sealed = true
	t.prog.Send(allDoneMsg{})
}

// Wait blocks until the program exits.
func (t *TUI) Wait() error {
	t.mu.Lock()
	res := t.result
	t.mu.Unlock()
	if res == nil {
		return ErrNotStarted
	}
	err := <-res
	// Leave the result for later Wait calls.
	res <- err
	return err
}

// tuiBar forwards bar mutations into the bubbletea event loop.
type tuiBar struct {
	prog *tea.Program
	lane int
}

func (b *tuiBar) SetDescription(desc string) { b.prog.Send(descMsg{lane: b.lane, desc: desc}) }

func (b *tuiBar) Add(n int) { b.prog.Send(addMsg{lane: b.lane, n: n}) }

func (b *tuiBar) Close() { b.prog.Send(closeMsg{lane: b.lane}) }
