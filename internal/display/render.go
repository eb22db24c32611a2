package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

const barWidth = 30

type Renderer struct {
	w io.Writer

	live    *color.Color
	offline *color.Color
	rice    *color.Color
	scale   *color.Color
	heading *color.Color
	muted   *color.Color
}

// NewRenderer writes to w; colours are dropped when colored is false.
func NewRenderer(w io.Writer, colored bool) *Renderer {
	r := &Renderer{
		w:       w,
		live:    color.New(color.FgHiGreen, color.Bold),
		offline: color.New(color.FgRed),
		rice:    color.New(color.FgGreen),
		scale:   color.New(color.FgYellow),
		heading: color.New(color.Bold),
		muted:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.live, r.offline, r.rice, r.scale, r.heading, r.muted} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *Renderer) Dashboard(d Dashboard) {
	if d.Live {
		r.live.Fprint(r.w, "● LIVE")
	} else {
		r.offline.Fprint(r.w, "○ OFFLINE")
	}
	fmt.Fprintln(r.w, "  Bangladesh Election 2026")
	fmt.Fprintln(r.w)

	r.Countdown(d.Countdown)
	fmt.Fprintln(r.w)

	r.heading.Fprintf(r.w, "National vote (%d votes)\n", d.Votes.Total)
	r.bar(r.rice, d.Votes.PartyA)
	r.bar(r.scale, d.Votes.PartyB)
	fmt.Fprintln(r.w)

	r.heading.Fprintf(r.w, "Referendum (%d votes)\n", d.Referendum.Total)
	r.bar(r.rice, d.Referendum.Yes)
	r.bar(r.offline, d.Referendum.No)
}

func (r *Renderer) Countdown(c model.CountdownValue) {
	if c.ElectionDay {
		r.live.Fprintln(r.w, "Election day is here")
		return
	}
	fmt.Fprintf(r.w, "%02d days %02d hours %02d minutes %02d seconds to polling\n", c.Days, c.Hours, c.Minutes, c.Seconds)
}

func (r *Renderer) bar(c *color.Color, b Bar) {
	filled := int(math.Round(b.Percent / 100 * barWidth))
	filled = min(max(filled, 0), barWidth)
	fmt.Fprintf(r.w, "  %-15s ", b.Label)
	c.Fprint(r.w, strings.Repeat("█", filled))
	r.muted.Fprint(r.w, strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(r.w, " %5s%% %d\n", FormatPercent(b.Percent), b.Count)
}

func (r *Renderer) Candidates(cs []model.Candidate) {
	r.heading.Fprintln(r.w, "Candidates")
	for _, c := range cs {
		col := r.rice
		if c.Symbol == model.OptionScale {
			col = r.scale
		}
		col.Fprintf(r.w, "  [%s] ", c.Symbol)
		fmt.Fprintf(r.w, "%s, %s\n", c.Name, c.Designation)
		fmt.Fprintf(r.w, "         %s\n", c.Party)
		if c.Motto != "" {
			r.muted.Fprintf(r.w, "         %q\n", c.Motto)
		}
	}
}

func (r *Renderer) Insights(is []model.Insight) {
	r.heading.Fprintln(r.w, "Insights")
	for _, i := range is {
		r.muted.Fprintf(r.w, "  %-9s ", strings.ToUpper(i.Category))
		fmt.Fprintf(r.w, "%s: %s\n", i.Title, i.Summary)
	}
}
