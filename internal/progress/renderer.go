package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

var stageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E07A5F"))

// BarRenderer shows a run on a terminal as a status line, a bar and, while
// illustrations are painted, one slot per image. On anything that is not a
// terminal it prints a timestamped line per stage instead.
type BarRenderer struct {
	out   io.Writer
	start time.Time
	tty   bool
	width int

	last    Event
	drawn   int   // lines of the current frame, erased before the next one
	stage   Stage // stage of the last plain line
	painted int
	slots   int
}

// NewBarRenderer creates a renderer on out, sized to the terminal when out
// is one.
func NewBarRenderer(out *os.File) *BarRenderer {
	return newBarRenderer(out, out.Fd())
}

func newBarRenderer(out io.Writer, fd uintptr) *BarRenderer {
	r := &BarRenderer{out: out, start: time.Now(), width: 80}
	r.tty = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	if !r.tty {
		return r
	}
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		r.width = w
	}
	return r
}

// Handle satisfies Callback.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1
	}
	if e.ImageTotal > 0 {
		r.slots = e.ImageTotal
		r.painted = max(r.painted, e.ImageNum)
	}
	r.last = e

	if r.tty {
		r.frame(e)
		return
	}
	r.line(e)
}

// Finish removes the live display and prints how the run ended.
func (r *BarRenderer) Finish() {
	if r.tty {
		r.erase()
	}

	e := r.last
	if e.Error != nil {
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
		return
	}
	if e.Stage != StageComplete {
		return
	}

	summary := e.Message
	if e.OutputFile != "" {
		summary = fmt.Sprintf("Storybook saved to %s (%d pages, %.1f MB)", e.OutputFile, e.Pages, e.SizeMB)
	}
	fmt.Fprintf(r.out, "\n  %s\n", summary)
	if e.AudioURL != "" {
		fmt.Fprintf(r.out, "  Audio: %s\n", e.AudioURL)
	}
	fmt.Fprintf(r.out, "  Total: %s\n", formatElapsed(e.Elapsed))
}

func (r *BarRenderer) frame(e Event) {
	r.erase()

	lines := []string{
		"  " + stageStyle.Render(string(e.Stage)) + " " + e.Message,
		fmt.Sprintf("  %s %3d%%  %s", renderBar(e.Percent, r.barWidth()), int(e.Percent*100), formatElapsed(e.Elapsed)),
	}
	if e.Stage == StageImages && r.slots > 0 {
		lines = append(lines, "  "+renderSlots(r.painted, r.slots))
	}
	fmt.Fprint(r.out, strings.Join(lines, "\n"))
	r.drawn = len(lines)
}

// line prints stage changes. Inside the image batch only the last image
// gets a line.
func (r *BarRenderer) line(e Event) {
	midBatch := e.Stage == StageImages && e.ImageNum > 0 && e.ImageNum < e.ImageTotal
	if midBatch && e.Stage == r.stage {
		return
	}
	r.stage = e.Stage
	fmt.Fprintf(r.out, "[%s] %-8s %s\n", formatElapsed(e.Elapsed), e.Stage, e.Message)
}

func (r *BarRenderer) erase() {
	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K"+strings.Repeat("\033[A\033[2K", r.drawn-1)+"\r")
	r.drawn = 0
}

// barWidth leaves room for "  [", "] 100%  0:00" on the second line.
func (r *BarRenderer) barWidth() int {
	return min(max(r.width-16, 20), 60)
}

func renderBar(pct float64, width int) string {
	filled := int(min(max(pct, 0), 1) * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// renderSlots draws one mark per illustration: filled when painted.
func renderSlots(done, total int) string {
	done = min(max(done, 0), total)
	return strings.Repeat("●", done) + strings.Repeat("○", total-done) + fmt.Sprintf(" %d/%d", done, total)
}

func formatElapsed(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
