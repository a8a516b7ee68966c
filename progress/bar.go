package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const defaultBarWidth = 30

var spinnerFrames = []string{"|", "/", "-", "\\"}

// BarRenderer draws a single self-overwriting progress line:
//
//	[00:00:03] [#########>----------] 1.2 MiB/4.0 MiB (3.1 MiB/s, eta 1s)
//
// When the total is unknown a spinner replaces the bar and the total.
type BarRenderer struct {
	w       io.Writer
	width   int
	frame   int
	lastLen int

	elapsedStyle lipgloss.Style
	filledStyle  lipgloss.Style
	emptyStyle   lipgloss.Style
	amountStyle  lipgloss.Style
	rateStyle    lipgloss.Style
	doneStyle    lipgloss.Style
}

// NewBarRenderer creates a BarRenderer writing to w. Colors are used only if
// w is a terminal that supports them.
func NewBarRenderer(w io.Writer) *BarRenderer {
	r := lipgloss.NewRenderer(w)
	return &BarRenderer{
		w:     w,
		width: defaultBarWidth,

		elapsedStyle: r.NewStyle().Foreground(lipgloss.Color("241")),
		filledStyle:  r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		emptyStyle:   r.NewStyle().Foreground(lipgloss.Color("240")),
		amountStyle:  r.NewStyle().Foreground(lipgloss.Color("252")),
		rateStyle:    r.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		doneStyle:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	}
}

// SetWidth sets the number of cells used by the bar itself.
func (b *BarRenderer) SetWidth(width int) {
	if width < 1 {
		width = 1
	}
	b.width = width
}

// Render overwrites the current line with s.
func (b *BarRenderer) Render(s Snapshot) error {
	return b.write("\r" + b.Line(s))
}

// Finish writes the final line followed by a newline.
func (b *BarRenderer) Finish(s Snapshot) error {
	return b.write("\r" + b.Line(s) + "\n")
}

func (b *BarRenderer) write(line string) error {
	visible := lipgloss.Width(line)
	if pad := b.lastLen - visible; pad > 0 && !strings.HasSuffix(line, "\n") {
		line += strings.Repeat(" ", pad)
	}
	b.lastLen = visible
	_, err := io.WriteString(b.w, line)
	return err
}

// Line formats s without any cursor control.
func (b *BarRenderer) Line(s Snapshot) string {
	var sb strings.Builder
	sb.WriteString(b.elapsedStyle.Render("[" + formatClock(s.Elapsed) + "]"))
	sb.WriteByte(' ')

	if s.TotalKnown {
		sb.WriteString(b.bar(s))
		sb.WriteByte(' ')
		sb.WriteString(b.amountStyle.Render(humanize.IBytes(s.Transferred) + "/" + humanize.IBytes(s.Total)))
	} else {
		sb.WriteString(spinnerFrames[b.frame%len(spinnerFrames)])
		b.frame++
		sb.WriteByte(' ')
		sb.WriteString(b.amountStyle.Render(humanize.IBytes(s.Transferred)))
	}

	rate := formatRate(s.Speed)
	if s.TotalKnown && !s.Done && s.ETA > 0 {
		rate += ", eta " + s.ETA.Round(time.Second).String()
	}
	sb.WriteByte(' ')
	sb.WriteString(b.rateStyle.Render("(" + rate + ")"))

	if s.Done {
		sb.WriteByte(' ')
		sb.WriteString(b.doneStyle.Render("done"))
	}
	return sb.String()
}

func (b *BarRenderer) bar(s Snapshot) string {
	filled := int(s.Fraction() * float64(b.width))
	if filled > b.width {
		filled = b.width
	}

	var head, rest string
	if filled < b.width {
		head = ">"
		rest = strings.Repeat("-", b.width-filled-1)
	}

	return "[" + b.filledStyle.Render(strings.Repeat("#", filled)+head) +
		b.emptyStyle.Render(rest) + "]"
}

func formatClock(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

func formatRate(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "-- B/s"
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}
