package progress

import "context"

// Quiet suppresses all bar output.
type Quiet struct{}

var _ Display = (*Quiet)(nil)

// Start is a no-op for Quiet.
func (*Quiet) Start(context.Context) error { return nil }

// Attach returns a bar that discards every update.
func (*Quiet) Attach(int, int) (Bar, error) { return quietBar{}, nil }

// Seal is a no-op for Quiet.
func (*Quiet) Seal() {}

// Wait returns immediately for Quiet.
func (*Quiet) Wait() error { return nil }

type quietBar struct{}

func (quietBar) SetDescription(string) {}
func (quietBar) Add(int)               {}
func (quietBar) Close()                {}
