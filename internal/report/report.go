// Package report renders validation results for humans: the consistency
// table, the per-image memory boxes, overlap pairs and the boot placement
// verdict.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/vk/ampbuild/internal/validate"
)

const boxWidth = 77

// Formatter writes reports to W. Colors are only emitted when Colorize is set.
type Formatter struct {
	W        io.Writer
	Colorize bool
}

// New returns a Formatter writing to w.
func New(w io.Writer, colorize bool) *Formatter {
	return &Formatter{W: w, Colorize: colorize}
}

func (f *Formatter) danger(s string) string {
	if !f.Colorize {
		return s
	}
	return color.Danger.Sprint(s)
}

func (f *Formatter) success(s string) string {
	if !f.Colorize {
		return s
	}
	return color.Success.Sprint(s)
}

func (f *Formatter) info(s string) string {
	if !f.Colorize {
		return s
	}
	return color.Info.Sprint(s)
}

// Comparison prints one line per image pair and the mismatching keys below
// each failed pair.
func (f *Formatter) Comparison(c validate.Comparison) {
	for _, p := range c.Pairs {
		if p.Matched() {
			fmt.Fprintf(f.W, "%s <-> %s: %s\n", p.Left, p.Right, f.success("match"))
			continue
		}
		fmt.Fprintf(f.W, "%s <-> %s: %s\n", p.Left, p.Right, f.danger("mismatch"))
		for _, m := range p.Mismatches {
			fmt.Fprintf(f.W, "  %s: %s=%s, %s=%s\n", m.Key, p.Left, m.Left, p.Right, m.Right)
		}
	}
	if c.AllMatch {
		fmt.Fprintln(f.W, f.success("All parameters match"))
	} else {
		fmt.Fprintln(f.W, f.danger("Parameter comparison failed"))
	}
}

// Regions prints a box per image with its memory range.
func (f *Formatter) Regions(regions []validate.Region) {
	rule := "+" + strings.Repeat("-", boxWidth) + "+"
	for _, r := range regions {
		fmt.Fprintln(f.W, rule)
		fmt.Fprintf(f.W, "|%s|\n", f.info(center(r.Image+"  "+r.Name, boxWidth)))
		fmt.Fprintln(f.W, rule)
		fmt.Fprintf(f.W, "Memory Range: 0x%08X - 0x%08X (%s, %d bytes)\n",
			r.Load, r.End(), humanize.IBytes(r.Length), r.Length)
		fmt.Fprintln(f.W, rule)
	}
}

// Overlaps prints every overlapping pair, or a success line when there is none.
func (f *Formatter) Overlaps(overlaps []validate.Overlap) {
	if len(overlaps) == 0 {
		fmt.Fprintln(f.W, f.success("No overlapping regions found"))
		return
	}
	fmt.Fprintln(f.W, f.danger("Overlapping memory regions:"))
	for _, o := range overlaps {
		fmt.Fprintf(f.W, "  %s [0x%08X - 0x%08X) overlaps %s [0x%08X - 0x%08X)\n",
			o.A.Image, o.A.Load, o.A.End(), o.B.Image, o.B.Load, o.B.End())
	}
}

// Placement prints the boot range and the window that holds it.
func (f *Formatter) Placement(p validate.Placement) {
	fmt.Fprintf(f.W, "Boot range 0x%08X - 0x%08X fits available space %d (0x%08X - 0x%08X): %s\n",
		p.Boot.Start, p.Boot.End, p.Window.Index, p.Window.Start, p.Window.End, f.success("ok"))
}

func (f *Formatter) placementFailure(e *validate.PlacementError) {
	fmt.Fprintf(f.W, "%s boot range 0x%08X - 0x%08X is outside every available space window\n",
		f.danger("Error:"), e.Boot.Start, e.Boot.End)
	for _, w := range e.Windows {
		fmt.Fprintf(f.W, "  window %d: 0x%08X - 0x%08X\n", w.Index, w.Start, w.End)
	}
}

// Error renders the structured validation errors found in err's chain and
// reports whether anything was printed.
func (f *Formatter) Error(err error) bool {
	var (
		ce *validate.ConsistencyError
		oe *validate.OverlapError
		pe *validate.PlacementError
	)
	switch {
	case errors.As(err, &ce):
		f.Comparison(ce.Comparison)
	case errors.As(err, &oe):
		f.Regions(oe.Regions)
		f.Overlaps(oe.Overlaps)
	case errors.As(err, &pe):
		f.placementFailure(pe)
	default:
		return false
	}
	return true
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}
