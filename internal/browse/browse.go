// Package browse is an interactive terminal view over a set of
// compositions.
package browse

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ivlev/composer/internal/composition"
)

const (
	modeList   = "list"
	modeDetail = "detail"
)

// Model lists compositions and shows the props of the selected one.
type Model struct {
	items  []composition.Descriptor
	cursor int
	mode   string
	source string
}

// New builds a model over items, which are shown in the given order.
func New(source string, items []composition.Descriptor) Model {
	return Model{
		items:  items,
		mode:   modeList,
		source: source,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyUp:
		m.move(-1)
	case tea.KeyDown:
		m.move(1)
	case tea.KeyEnter:
		if len(m.items) > 0 {
			m.mode = modeDetail
		}
	case tea.KeyEsc:
		m.mode = modeList
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "q":
			return m, tea.Quit
		case "k":
			m.move(-1)
		case "j":
			m.move(1)
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if m.mode != modeList || len(m.items) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
}

func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "compositions in %s\n\n", m.source)

	if len(m.items) == 0 {
		b.WriteString("  (none)\n\n(q to quit)")
		return b.String()
	}

	if m.mode == modeDetail {
		writeDetail(&b, m.items[m.cursor])
		b.WriteString("\n(esc to go back, q to quit)")
		return b.String()
	}

	for i, d := range m.items {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%-24s %5dx%-5d %6g fps %6d frames\n",
			marker, d.ID(), d.Width(), d.Height(), d.FPS(), d.DurationInFrames())
	}
	b.WriteString("\n(up/down to move, enter for props, q to quit)")
	return b.String()
}

func writeDetail(b *strings.Builder, d composition.Descriptor) {
	fmt.Fprintf(b, "id:       %s\n", d.ID())
	fmt.Fprintf(b, "size:     %dx%d\n", d.Width(), d.Height())
	fmt.Fprintf(b, "fps:      %g\n", d.FPS())
	fmt.Fprintf(b, "duration: %d frames (%.2fs)\n", d.DurationInFrames(), d.DurationSeconds())

	writeProps(b, "defaultProps", d.DefaultProps())
	writeProps(b, "props", d.Props())
}

func writeProps(b *strings.Builder, title string, p composition.Props) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(p) == 0 {
		b.WriteString("  (empty)\n")
		return
	}
	for _, k := range p.Keys() {
		fmt.Fprintf(b, "  %s = %s\n", k, p[k].String())
	}
}

func (m Model) CurrentMode() string {
	return m.mode
}

// Selected returns the composition under the cursor.
func (m Model) Selected() (composition.Descriptor, bool) {
	if len(m.items) == 0 {
		return composition.Descriptor{}, false
	}
	return m.items[m.cursor], true
}

// Run starts the interactive program on the terminal.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
