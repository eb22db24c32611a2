// Package countdown breaks the time left until the election into days,
// hours, minutes and seconds.
package countdown

import (
	"context"
	"time"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// Breakdown splits d into whole days, hours, minutes and seconds. A
// non-positive duration means the election has started.
func Breakdown(d time.Duration) model.CountdownValue {
	if d <= 0 {
		return model.CountdownValue{ElectionDay: true}
	}

	secs := int64(d / time.Second)
	return model.CountdownValue{
		Days:    int(secs / 86400),
		Hours:   int(secs % 86400 / 3600),
		Minutes: int(secs % 3600 / 60),
		Seconds: int(secs % 60),
	}
}

func Until(target, now time.Time) model.CountdownValue {
	return Breakdown(target.Sub(now))
}

// Normalize clamps negative fields of a pushed countdown to zero.
func Normalize(v model.CountdownValue) model.CountdownValue {
	v.Days = max(v.Days, 0)
	v.Hours = max(v.Hours, 0)
	v.Minutes = max(v.Minutes, 0)
	v.Seconds = max(v.Seconds, 0)
	return v
}

// Ticker emits the countdown to a fixed target once per interval.
type Ticker struct {
	target   time.Time
	interval time.Duration
	now      func() time.Time
}

func NewTicker(target time.Time) *Ticker {
	return &Ticker{target: target, interval: time.Second, now: time.Now}
}

// Run calls fn immediately and then on every tick until ctx is done or
// the election day has been reached.
func (t *Ticker) Run(ctx context.Context, fn func(model.CountdownValue)) {
	v := Until(t.target, t.now())
	fn(v)
	if v.ElectionDay {
		return
	}

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			v := Until(t.target, t.now())
			fn(v)
			if v.ElectionDay {
				return
			}
		}
	}
}
