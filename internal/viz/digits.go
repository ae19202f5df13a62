// Package viz renders pointer-task samples in the terminal and writes
// self-contained HTML training reports.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/pointer"
)

// ramp maps pixel intensity to glyphs, dark to bright.
const ramp = " .:-=+*#%@"

// candidatesPerRow caps the candidate strip width.
const candidatesPerRow = 5

// Theme defines the color scheme for sample rendering.
type Theme struct {
	Accent lipgloss.Color // titles and the query panel
	Hit    lipgloss.Color // the model picked the target
	Miss   lipgloss.Color // the model picked a distractor
	Target lipgloss.Color // the target the model missed
	Dim    lipgloss.Color // undecorated panels and help text
}

// DefaultTheme is the default dark-terminal theme.
var DefaultTheme = Theme{
	Accent: lipgloss.Color("#00ff9f"),
	Hit:    lipgloss.Color("#56d364"),
	Miss:   lipgloss.Color("#f85149"),
	Target: lipgloss.Color("#58a6ff"),
	Dim:    lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Query  lipgloss.Style
	Hit    lipgloss.Style
	Miss   lipgloss.Style
	Target lipgloss.Style
	Plain  lipgloss.Style
	Dim    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	panel := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Query:  panel.BorderForeground(t.Accent),
		Hit:    panel.BorderForeground(t.Hit).Foreground(t.Hit),
		Miss:   panel.BorderForeground(t.Miss).Foreground(t.Miss),
		Target: panel.BorderForeground(t.Target).Foreground(t.Target),
		Plain:  panel.BorderForeground(t.Dim),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// RenderDigit renders a flattened 28x28 image as glyph rows, one glyph
// per 1x2 pixel block so the aspect ratio survives terminal cells.
func RenderDigit(img []float32) string {
	return renderGlyphs(img, 1, 2)
}

// RenderDigitCompact renders at half width for candidate strips.
func RenderDigitCompact(img []float32) string {
	return renderGlyphs(img, 2, 2)
}

// renderGlyphs maps pixel blocks to ramp glyphs; each hstep x vstep block
// renders as one glyph chosen from its mean intensity.
func renderGlyphs(img []float32, hstep, vstep int) string {
	var sb strings.Builder
	for row := 0; row+vstep <= mnist.ImageRows; row += vstep {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col+hstep <= mnist.ImageCols; col += hstep {
			var sum float32
			for r := 0; r < vstep; r++ {
				for c := 0; c < hstep; c++ {
					sum += img[(row+r)*mnist.ImageCols+col+c]
				}
			}
			sb.WriteByte(glyph(sum / float32(hstep*vstep)))
		}
	}
	return sb.String()
}

func glyph(v float32) byte {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	idx := int(v*float32(len(ramp)-1) + 0.5)
	if idx >= len(ramp) {
		idx = len(ramp) - 1
	}
	return ramp[idx]
}

// RenderSample lays out one task instance: the query digit, then the
// candidate strip with the model's pick and the true target marked. pick
// is the candidate index the model chose; pass -1 to render the sample
// without a pick.
func RenderSample(s *pointer.Sample, pick int, st Styles) string {
	successor := (s.QueryClass + 1) % mnist.NumClasses

	sections := []string{
		st.Title.Render(fmt.Sprintf("Query: digit %d, looking for digit %d", s.QueryClass, successor)),
		st.Query.Render(RenderDigit(s.Query)),
	}

	row := make([]string, 0, candidatesPerRow)
	for i, candidate := range s.Candidates {
		row = append(row, renderCandidate(s, i, candidate, pick, st))
		if len(row) == candidatesPerRow || i == len(s.Candidates)-1 {
			sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = row[:0]
		}
	}

	sections = append(sections, st.Dim.Render("✓ picked the target   › model's pick   • true target"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderCandidate(s *pointer.Sample, i int, img []float32, pick int, st Styles) string {
	label := fmt.Sprintf("#%d digit %d", i, s.CandidateClasses[i])

	style := st.Plain
	switch {
	case i == pick && i == s.Target:
		style = st.Hit
		label += " ✓"
	case i == pick:
		style = st.Miss
		label += " ›"
	case i == s.Target:
		style = st.Target
		label += " •"
	}

	return style.Render(label + "\n" + RenderDigitCompact(img))
}
