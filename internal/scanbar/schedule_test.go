package scanbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCadence(t *testing.T) {
	t.Parallel()

	for total := 1; total <= 20; total++ {
		assert.Equal(t, 1, Cadence(total), "total=%d", total)
	}
	for _, total := range []int{21, 39, 40, 47, 100, 1000, 12345} {
		assert.Equal(t, total/20, Cadence(total), "total=%d", total)
	}
}

func TestRemainder(t *testing.T) {
	t.Parallel()

	for total := 1; total <= 500; total++ {
		r := Remainder(total)
		p := Cadence(total)
		assert.GreaterOrEqual(t, r, 0, "total=%d", total)
		assert.Less(t, r, p, "total=%d", total)
	}
	assert.Equal(t, 1, Remainder(47))
	assert.Equal(t, 0, Remainder(5))
}

func TestEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		iter  int
		total int
		want  []Event
	}{
		{
			name:  "first iteration with cadence one",
			iter:  1,
			total: 5,
			want: []Event{
				{Iter: 1, Kind: KindStart, Advance: 0},
				{Iter: 1, Kind: KindTick, Advance: 1},
			},
		},
		{
			name:  "last iteration with cadence one",
			iter:  5,
			total: 5,
			want: []Event{
				{Iter: 5, Kind: KindTick, Advance: 1},
				{Iter: 5, Kind: KindFinish, Advance: 0},
			},
		},
		{
			name:  "odd iteration off cadence",
			iter:  3,
			total: 47,
			want:  nil,
		},
		{
			name:  "cadence boundary",
			iter:  46,
			total: 47,
			want:  []Event{{Iter: 46, Kind: KindTick, Advance: 2}},
		},
		{
			name:  "final iteration flushes remainder",
			iter:  47,
			total: 47,
			want:  []Event{{Iter: 47, Kind: KindFinish, Advance: 1}},
		},
		{
			name:  "single iteration run fires all three",
			iter:  1,
			total: 1,
			want: []Event{
				{Iter: 1, Kind: KindStart, Advance: 0},
				{Iter: 1, Kind: KindTick, Advance: 1},
				{Iter: 1, Kind: KindFinish, Advance: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Events(tt.iter, tt.total))
		})
	}
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	t.Run("total 47", func(t *testing.T) {
		t.Parallel()

		evs := Schedule(47)
		require.Len(t, evs, 25)

		assert.Equal(t, Event{Iter: 1, Kind: KindStart, Advance: 0}, evs[0])
		for i, ev := range evs[1:24] {
			assert.Equal(t, Event{Iter: 2 * (i + 1), Kind: KindTick, Advance: 2}, ev)
		}
		assert.Equal(t, Event{Iter: 47, Kind: KindFinish, Advance: 1}, evs[24])
	})

	t.Run("advances sum to total", func(t *testing.T) {
		t.Parallel()

		for _, total := range []int{1, 5, 19, 20, 21, 47, 100, 999} {
			var sum, finishes int
			for _, ev := range Schedule(total) {
				sum += ev.Advance
				if ev.Kind == KindFinish {
					finishes++
				}
			}
			assert.Equal(t, total, sum, "total=%d", total)
			assert.Equal(t, 1, finishes, "total=%d", total)
		}
	})
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "start", KindStart.String())
	assert.Equal(t, "tick", KindTick.String())
	assert.Equal(t, "finish", KindFinish.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
