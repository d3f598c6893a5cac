package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/binlayout"
	"github.com/wippyai/binlayout/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	spanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const hexBytesPerRow = 16

type inspectModel struct {
	err      error
	filename string
	data     []byte
	layout   binlayout.Layout
	offset   int
	span     int // span of the decoded instance at offset, -1 when undecodable
	decoded  string
	input    textinput.Model
	entering bool
	width    int
	height   int
}

func runInteractive(dataFile, schemaSrc string) error {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	layout, err := schema.Compile(schemaSrc)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "offset (hex or decimal)"
	input.CharLimit = 18

	m := &inspectModel{
		filename: dataFile,
		data:     data,
		layout:   layout,
		input:    input,
		width:    80,
		height:   24,
	}
	m.redecode()

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) redecode() {
	m.span = -1
	m.decoded = ""
	m.err = nil

	n, err := m.layout.GetSpan(m.data, m.offset)
	if err != nil {
		m.err = err
		return
	}
	v, err := m.layout.Decode(m.data, m.offset)
	if err != nil {
		m.err = err
		return
	}
	m.span = n

	var b strings.Builder
	renderValue(&b, v, 0)
	m.decoded = b.String()
}

func renderValue(b *strings.Builder, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case *binlayout.Record:
		for _, k := range t.Keys() {
			fv, _ := t.Get(k)
			switch fv.(type) {
			case *binlayout.Record, []any:
				fmt.Fprintf(b, "%s%s:\n", indent, fieldStyle.Render(k))
				renderValue(b, fv, depth+1)
			default:
				fmt.Fprintf(b, "%s%s: %s\n", indent, fieldStyle.Render(k), valueStyle.Render(formatScalar(fv)))
			}
		}
	case []any:
		for i, item := range t {
			switch item.(type) {
			case *binlayout.Record, []any:
				fmt.Fprintf(b, "%s[%d]:\n", indent, i)
				renderValue(b, item, depth+1)
			default:
				fmt.Fprintf(b, "%s[%d]: %s\n", indent, i, valueStyle.Render(formatScalar(item)))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", indent, valueStyle.Render(formatScalar(v)))
	}
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case []byte:
		return fmt.Sprintf("% x", t)
	case string:
		return fmt.Sprintf("%q", t)
	case uint64:
		return fmt.Sprintf("%d (0x%x)", t, t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.entering {
			switch msg.String() {
			case "enter":
				m.entering = false
				if off, err := strconv.ParseInt(strings.TrimSpace(m.input.Value()), 0, 64); err == nil {
					m.setOffset(int(off))
				}
				m.input.Blur()
				return m, nil
			case "esc":
				m.entering = false
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.setOffset(m.offset - hexBytesPerRow)
		case "down", "j":
			m.setOffset(m.offset + hexBytesPerRow)
		case "left", "h":
			m.setOffset(m.offset - 1)
		case "right", "l":
			m.setOffset(m.offset + 1)
		case "n":
			// Jump to the next instance.
			if m.span > 0 {
				m.setOffset(m.offset + m.span)
			}
		case "g":
			m.entering = true
			m.input.SetValue("")
			m.input.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *inspectModel) setOffset(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(m.data) {
		off = len(m.data)
	}
	m.offset = off
	m.redecode()
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" layoutview %s (%d bytes) ", m.filename, len(m.data))))
	b.WriteString("\n\n")

	hexRows := m.height - 8
	if hexRows < 4 {
		hexRows = 4
	}
	b.WriteString(m.renderHex(hexRows))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("decode: " + m.err.Error()))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "%s\n", offsetStyle.Render(fmt.Sprintf("@%06x, %d bytes:", m.offset, m.span)))
		b.WriteString(m.decoded)
	}

	b.WriteString("\n")
	if m.entering {
		b.WriteString("go to: " + m.input.View())
	} else {
		b.WriteString(helpStyle.Render("←/→ byte · ↑/↓ row · n next instance · g go to offset · q quit"))
	}
	return b.String()
}

// renderHex shows a window of rows around the current offset, highlighting
// the bytes of the decoded instance.
func (m *inspectModel) renderHex(rows int) string {
	startRow := m.offset/hexBytesPerRow - rows/2
	if startRow < 0 {
		startRow = 0
	}

	var b strings.Builder
	for r := startRow; r < startRow+rows; r++ {
		base := r * hexBytesPerRow
		if base >= len(m.data) {
			break
		}
		b.WriteString(offsetStyle.Render(fmt.Sprintf("%06x  ", base)))
		for i := 0; i < hexBytesPerRow; i++ {
			pos := base + i
			if pos >= len(m.data) {
				b.WriteString("   ")
				continue
			}
			cell := fmt.Sprintf("%02x ", m.data[pos])
			if m.span > 0 && pos >= m.offset && pos < m.offset+m.span {
				cell = spanStyle.Render(fmt.Sprintf("%02x", m.data[pos])) + " "
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}
