package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/scanbar/internal/progress"
	"github.com/ndisidore/scanbar/internal/scanbar"
	"github.com/ndisidore/scanbar/pkg/config"
)

var errParse = errors.New("bad file")

func runCLI(t *testing.T, a *app, args ...string) error {
	t.Helper()
	return a.command().Run(context.Background(), append([]string{"scanbar", "--format", "text"}, args...))
}

func TestPlanAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantOut string
		wantErr error
	}{
		{
			name:    "divisible total",
			args:    []string{"plan", "-n", "40"},
			wantOut: "Samples:   40\nCadence:   2\nRemainder: 0\nUpdates:   22\n",
		},
		{
			name:    "remainder",
			args:    []string{"plan", "-n", "47"},
			wantOut: "Samples:   47\nCadence:   2\nRemainder: 1\nUpdates:   25\n",
		},
		{
			name: "events listed",
			args: []string{"plan", "-n", "5", "--events"},
			wantOut: "Samples:   5\nCadence:   1\nRemainder: 0\nUpdates:   7\n" +
				"  iter 1      start  +0\n" +
				"  iter 1      tick   +1\n" +
				"  iter 2      tick   +1\n" +
				"  iter 3      tick   +1\n" +
				"  iter 4      tick   +1\n" +
				"  iter 5      tick   +1\n" +
				"  iter 5      finish +0\n",
		},
		{
			name:    "zero samples",
			args:    []string{"plan", "-n", "0"},
			wantErr: scanbar.ErrInvalidTotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			a := &app{stdout: &buf}

			err := runCLI(t, a, tt.args...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, buf.String())
		})
	}
}

func TestValidateAction(t *testing.T) {
	t.Parallel()

	good := config.Run{Name: "normal", Samples: 47, Chains: 4, StepSize: 1}

	tests := []struct {
		name    string
		args    []string
		parse   func(string) (config.Run, error)
		want    []string
		wantErr error
	}{
		{
			name:  "valid file",
			args:  []string{"validate", "run.kdl"},
			parse: func(string) (config.Run, error) { return good, nil },
			want: []string{
				"Run 'normal' is valid\n",
				"  Samples: 47\n",
				"  Chains:  4\n",
				"  Cadence: 2 (remainder 1)\n",
				"  Digest:  " + good.Digest().String() + "\n",
			},
		},
		{
			name:    "missing file argument",
			args:    []string{"validate"},
			wantErr: errMissingFile,
		},
		{
			name:    "parse error propagates",
			args:    []string{"validate", "run.kdl"},
			parse:   func(string) (config.Run, error) { return config.Run{}, errParse },
			wantErr: errParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			a := &app{stdout: &buf, parse: tt.parse}

			err := runCLI(t, a, tt.args...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, line := range tt.want {
				assert.Contains(t, buf.String(), line)
			}
		})
	}
}

func TestRunAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		parse    func(string) (config.Run, error)
		contains []string
		wantErr  error
	}{
		{
			name:     "quiet run with stats",
			args:     []string{"run", "-n", "47", "--chains", "3", "--seed", "9", "--progress", "quiet", "--stats"},
			contains: []string{"Chain summary:", "chain 0", "chain 1", "chain 2", "Overall:"},
		},
		{
			name:     "plain run logs bar progress",
			args:     []string{"run", "-n", "10", "--chains", "2", "--progress", "plain"},
			contains: []string{"[lane 0] Warmup 0", "[lane 1] done 10/10", "run cli complete"},
		},
		{
			name:     "chain logs carry their lane",
			args:     []string{"--log-level", "debug", "run", "-n", "8", "--chains", "2", "--progress", "quiet"},
			contains: []string{`msg="chain finished" lane=0`, `msg="chain finished" lane=1`},
		},
		{
			name:     "device names and custom label",
			args:     []string{"run", "-n", "5", "--chains", "2", "--progress", "plain", "--device-prefix", "TFRT_CPU_", "--label", "Chain %d"},
			contains: []string{"[lane 1] Chain 1"},
		},
		{
			name: "config file with flag override",
			args: []string{"run", "--config", "run.kdl", "--chains", "2", "--progress", "quiet", "--stats"},
			parse: func(string) (config.Run, error) {
				return config.Run{Name: "file", Samples: 20, Chains: 4, StepSize: 1}, nil
			},
			contains: []string{"chain 1", "/20 accepted"},
		},
		{
			name:    "invalid chains",
			args:    []string{"run", "-n", "10", "--chains", "0", "--progress", "quiet"},
			wantErr: config.ErrOutOfRange,
		},
		{
			name:    "bad label",
			args:    []string{"run", "-n", "10", "--progress", "quiet", "--label", "no verb"},
			wantErr: scanbar.ErrInvalidLabel,
		},
		{
			name:    "unknown progress mode",
			args:    []string{"run", "-n", "10", "--progress", "fancy"},
			wantErr: errUnknownProgressMode,
		},
		{
			name:    "config parse error",
			args:    []string{"run", "--config", "run.kdl", "--progress", "quiet"},
			parse:   func(string) (config.Run, error) { return config.Run{}, errParse },
			wantErr: errParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			a := &app{stdout: &buf, parse: tt.parse}

			err := runCLI(t, a, tt.args...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestSelectDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		isTTY   bool
		format  string
		mode    string
		want    progress.Display
		wantErr error
	}{
		{name: "auto tty pretty", isTTY: true, format: "pretty", mode: "auto", want: &progress.TUI{}},
		{name: "auto tty json", isTTY: true, format: "json", mode: "auto", want: &progress.Plain{}},
		{name: "auto no tty", format: "pretty", mode: "auto", want: &progress.Plain{}},
		{name: "tui", mode: "tui", want: &progress.TUI{}},
		{name: "plain", mode: "plain", want: &progress.Plain{}},
		{name: "quiet", mode: "quiet", want: &progress.Quiet{}},
		{name: "unknown", mode: "fancy", wantErr: errUnknownProgressMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := &app{isTTY: tt.isTTY, format: tt.format}

			got, err := a.selectDisplay(tt.mode, false)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}
