package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is tabular output for FormatTable. It marshals to JSON as a list
// of objects keyed by Header so the other formats still work.
type Table struct {
	Header []string
	Rows   [][]string
}

// MarshalJSON encodes the table as an array of header-ordered objects.
func (t Table) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		for j, h := range t.Header {
			if j > 0 {
				b.WriteByte(',')
			}
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			k, _ := json.Marshal(h)
			v, _ := json.Marshal(cell)
			b.Write(k)
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// PrintTable writes t as left-aligned columns. The header is styled with
// DefaultTheme when w is a terminal and printed plain otherwise.
func PrintTable(w io.Writer, t Table) error {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	r := lipgloss.NewRenderer(w)
	head := r.NewStyle().Bold(true).Foreground(DefaultTheme.Primary)

	line := func(cells []string, style *lipgloss.Style) string {
		var b strings.Builder
		for i := range widths {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if style != nil {
				c = style.Render(c)
			}
			b.WriteString(c)
			if i < len(widths)-1 {
				b.WriteString(pad + "   ")
			}
		}
		return b.String()
	}

	if _, err := fmt.Fprintln(w, line(t.Header, &head)); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(w, line(row, nil)); err != nil {
			return err
		}
	}
	return nil
}

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
}
