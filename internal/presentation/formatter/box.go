package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// box draws a bordered table whose column widths fit their content.
type box struct {
	headers []string
	aligns  []align
	widths  []int
	minimum int
}

func newBox(headers []string, aligns []align) *box {
	b := &box{headers: headers, aligns: aligns, minimum: 4}
	b.widths = make([]int, len(headers))
	for i, h := range headers {
		b.widths[i] = util.GetDisplayWidth(h)
	}
	return b
}

// fit widens columns to hold row.
func (b *box) fit(row []string) {
	for i, v := range row {
		if w := util.GetDisplayWidth(v); w > b.widths[i] {
			b.widths[i] = w
		}
	}
}

func (b *box) border(w io.Writer, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	default:
		left, middle, right = "└", "┴", "┘"
	}

	var sb strings.Builder
	sb.WriteString(left)
	for i, width := range b.widths {
		sb.WriteString(strings.Repeat("─", max(width, b.minimum)+2))
		if i < len(b.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	fmt.Fprintln(w, sb.String())
}

func (b *box) row(w io.Writer, values []string) {
	var sb strings.Builder
	sb.WriteString("│")
	for i, v := range values {
		width := max(b.widths[i], b.minimum)
		if b.aligns[i] == alignRight {
			sb.WriteString(" " + util.PadLeft(v, width) + " │")
		} else {
			sb.WriteString(" " + util.PadRight(v, width) + " │")
		}
	}
	fmt.Fprintln(w, sb.String())
}

// render prints headers, rows and an optional footer row.
func (b *box) render(w io.Writer, rows [][]string, footer []string) {
	for _, r := range rows {
		b.fit(r)
	}
	if footer != nil {
		b.fit(footer)
	}

	b.border(w, "top")
	b.row(w, b.headers)
	b.border(w, "middle")
	for _, r := range rows {
		b.row(w, r)
	}
	if footer != nil {
		b.border(w, "middle")
		b.row(w, footer)
	}
	b.border(w, "bottom")
}
