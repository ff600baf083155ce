package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

// barState tracks a single lane's render state.
type barState struct {
	desc   string
	n      int
	total  int
	closed bool
}

// fraction returns completion in [0, 1].
func (b *barState) fraction() float64 {
	if b.total <= 0 {
		return 0
	}
	f := float64(b.n) / float64(b.total)
	return min(max(f, 0), 1)
}

// model is the bubbletea model for rendering lane bars.
// All methods use pointer receivers so updates to bars operate on the
// same instance the program holds.
type model struct {
	bars   map[int]*barState
	order  []int // lanes in attach order
	width  int
	boring bool // use ASCII bar glyphs
	done   bool
}

const (
	_defaultBarWidth = 40
	_minBarWidth     = 10
	// _barChrome is the room reserved for label and counters beside the bar.
	_barChrome = 40
)

func newModel(boring bool) *model {
	return &model{
		bars:   make(map[int]*barState),
		boring: boring,
	}
}

// barAddedMsg registers a lane's bar.
type barAddedMsg struct{ lane, total int }

// descMsg replaces a lane's label.
type descMsg struct {
	lane int
	desc string
}

// addMsg advances a lane's bar.
type addMsg struct{ lane, n int }

// closeMsg marks a lane's bar finished.
type closeMsg struct{ lane int }

// allDoneMsg signals that no further messages will arrive.
type allDoneMsg struct{}

// Init implements tea.Model.
func (*model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case barAddedMsg:
		if _, ok := m.bars[msg.lane]; !ok {
			m.order = append(m.order, msg.lane)
		}
		m.bars[msg.lane] = &barState{total: msg.total}
	case descMsg:
		if b := m.live(msg.lane); b != nil {
			b.desc = msg.desc
		}
	case addMsg:
		if b := m.live(msg.lane); b != nil {
			b.n += msg.n
		}
	case closeMsg:
		if b := m.live(msg.lane); b != nil {
			b.closed = true
		}
	case allDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// live returns the bar for lane, or nil when unknown or already closed.
func (m *model) live(lane int) *barState {
	b, ok := m.bars[lane]
	if !ok || b.closed {
		return nil
	}
	return b
}

var (
	_descStyle  = lipgloss.NewStyle().Bold(true)
	_fillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
	_emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim
	_doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
)

func (m *model) barWidth() int {
	if m.width == 0 {
		return _defaultBarWidth
	}
	return max(m.width-_barChrome, _minBarWidth)
}

// View implements tea.Model.
func (m *model) View() string {
	var b strings.Builder

	fill, empty := "█", "░"
	if m.boring {
		fill, empty = "#", "-"
	}
	width := m.barWidth()

	for _, lane := range m.order {
		st := m.bars[lane]
		filled := int(st.fraction() * float64(width))

		style := _fillStyle
		if st.closed {
			style = _doneStyle
		}

		_, _ = fmt.Fprintf(&b, "%s %s%s %d/%d %3.0f%%\n",
			_descStyle.Render(fmt.Sprintf("%-14s", st.desc)),
			style.Render(strings.Repeat(fill, filled)),
			_emptyStyle.Render(strings.Repeat(empty, width-filled)),
			st.n, st.total, st.fraction()*100,
		)
	}

	return b.String()
}
