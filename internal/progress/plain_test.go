package progress

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/scanbar/pkg/slogctx"
)

// barOp applies one mutation to a bar.
type barOp func(Bar)

func describe(d string) barOp { return func(b Bar) { b.SetDescription(d) } }
func add(n int) barOp         { return func(b Bar) { b.Add(n) } }
func closeBar() barOp         { return func(b Bar) { b.Close() } }

func TestPlainBar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		ops          []barOp
		wantLogs     []string
		wantLogCount map[string]int // exact occurrence count for specific substrings
		wantEmpty    bool
	}{
		{
			name:     "describe then advance",
			ops:      []barOp{describe("Warmup 3"), add(2)},
			wantLogs: []string{"bar.describe", "bar.advance", "Warmup 3 2/10"},
		},
		{
			name:      "zero advance is silent",
			ops:       []barOp{add(0)},
			wantEmpty: true,
		},
		{
			name:         "repeated description suppressed",
			ops:          []barOp{describe("Warmup 3"), describe("Warmup 3")},
			wantLogCount: map[string]int{"bar.describe": 1},
		},
		{
			name:         "close logs once and freezes bar",
			ops:          []barOp{add(10), closeBar(), closeBar(), add(1), describe("late")},
			wantLogs:     []string{"done 10/10"},
			wantLogCount: map[string]int{"bar.close": 1, "bar.advance": 1, "bar.describe": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			p := &Plain{Log: log}
			require.NoError(t, p.Start(context.Background()))
			b, err := p.Attach(3, 10)
			require.NoError(t, err)

			for _, op := range tt.ops {
				op(b)
			}
			p.Seal()
			require.NoError(t, p.Wait())

			output := buf.String()
			if tt.wantEmpty {
				assert.Empty(t, output)
			}
			for _, want := range tt.wantLogs {
				assert.Contains(t, output, want)
			}
			for substr, count := range tt.wantLogCount {
				actual := strings.Count(output, substr)
				assert.Equal(t, count, actual, "expected %q to appear %d time(s), got %d", substr, count, actual)
			}
		})
	}
}

func TestPlainLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("attach before start returns error", func(t *testing.T) {
		t.Parallel()

		_, err := (&Plain{}).Attach(0, 1)
		require.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("logger taken from context", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx := slogctx.ContextWithLogger(context.Background(), log)

		p := &Plain{}
		require.NoError(t, p.Start(ctx))
		b, err := p.Attach(0, 5)
		require.NoError(t, err)
		b.Add(5)

		assert.Contains(t, buf.String(), `"lane":0`)
		assert.Contains(t, buf.String(), `"n":5`)
	})
}

func TestQuiet(t *testing.T) {
	t.Parallel()

	q := &Quiet{}
	require.NoError(t, q.Start(t.Context()))
	b, err := q.Attach(0, 3)
	require.NoError(t, err)
	b.SetDescription("Warmup 0")
	b.Add(3)
	b.Close()
	q.Seal()
	require.NoError(t, q.Wait())
}
