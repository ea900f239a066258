// Package viewport answers "which variants are visible in this window" for a
// track at a given zoom, merging variants that fall within one pixel.
package viewport

import (
	"sync/atomic"

	"github.com/inodb/vibe-sync/internal/metrics"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
)

// Interval is a display interval in meta-genome coordinates, [Start, Stop).
// Merged intervals have Kind Mix and a nil Variant.
type Interval struct {
	Start   int64
	Stop    int64
	Kind    variant.Kind
	Count   int
	Variant *variant.Variant
}

// span returns the meta-genome extent of v, at least one base.
func span(v *variant.Variant) Interval {
	length := v.Length()
	if length < 1 {
		length = 1
	}
	start := v.MetaGenomePosition()
	return Interval{Start: start, Stop: start + length, Kind: v.Kind(), Count: 1, Variant: v}
}

// Fit builds the display list for variants in meta-genome order. Above one
// pixel per base every variant is kept. Otherwise a variant is merged into
// the previous interval when the gap between them is under one pixel.
func Fit(variants []*variant.Variant, pixelsPerBase float64) []Interval {
	out := make([]Interval, 0, len(variants))
	if pixelsPerBase > 1 {
		for _, v := range variants {
			out = append(out, span(v))
		}
		return out
	}

	for _, v := range variants {
		next := span(v)
		if n := len(out); n > 0 {
			last := &out[n-1]
			if float64(next.Start-last.Stop)*pixelsPerBase < 1 {
				last.Stop = max(last.Stop, next.Stop)
				last.Count++
				last.Kind = variant.Mix
				last.Variant = nil
				continue
			}
		}
		out = append(out, next)
	}
	return out
}

// List is a fitted interval list ready for window queries.
type List struct {
	intervals []Interval
	// reach[i] is the largest Stop among intervals[:i+1]; it keeps the
	// lower-bound search valid when long intervals enclose later ones.
	reach []int64

	pixelsPerBase float64
	version       uint64
}

// NewList wraps intervals sorted by Start.
func NewList(intervals []Interval) *List {
	l := &List{intervals: intervals, reach: make([]int64, len(intervals))}
	var r int64
	for i, iv := range intervals {
		if i == 0 || iv.Stop > r {
			r = iv.Stop
		}
		l.reach[i] = r
	}
	return l
}

// Len returns the number of intervals.
func (l *List) Len() int { return len(l.intervals) }

// Intervals returns the fitted intervals. The slice must not be modified.
func (l *List) Intervals() []Interval { return l.intervals }

// Query returns the intervals overlapping the inclusive window [start, stop].
// Results stay half-open: each is clipped to [start, stop+1), so windows
// covering the same bases return the same intervals. Above one pixel per
// base, an interval enclosing later entries, such as a long structural
// variant, overlaps them in the result. It returns nil when nothing overlaps.
func (l *List) Query(start, stop int64) []Interval {
	n := len(l.intervals)
	if n == 0 || stop < start {
		return nil
	}

	lo := l.firstReaching(start, 0, n)
	hi := l.firstStartingAfter(stop, lo, n) - 1
	if lo > hi {
		return nil
	}

	out := make([]Interval, 0, hi-lo+1)
	for _, iv := range l.intervals[lo : hi+1] {
		if iv.Stop <= start {
			continue // enclosed by an earlier long interval
		}
		iv.Start = max(iv.Start, start)
		iv.Stop = min(iv.Stop, stop+1)
		out = append(out, iv)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstReaching bisects [lo, hi) for the first index whose reach passes start.
func (l *List) firstReaching(start int64, lo, hi int) int {
	if lo >= hi {
		return lo
	}
	mid := lo + (hi-lo)/2
	if l.reach[mid] > start {
		return l.firstReaching(start, lo, mid)
	}
	return l.firstReaching(start, mid+1, hi)
}

// firstStartingAfter bisects [lo, hi) for the first index whose Start is
// past stop.
func (l *List) firstStartingAfter(stop int64, lo, hi int) int {
	if lo >= hi {
		return lo
	}
	mid := lo + (hi-lo)/2
	if l.intervals[mid].Start > stop {
		return l.firstStartingAfter(stop, lo, mid)
	}
	return l.firstStartingAfter(stop, mid+1, hi)
}

// Viewport caches the fitted list of one track. The list is swapped
// atomically, so a query sees either the old or the new list, never a
// partial rebuild.
type Viewport struct {
	track   *track.Track
	metrics *metrics.Collector
	fitted  atomic.Pointer[List]
}

// New creates a viewport over t.
func New(t *track.Track) *Viewport {
	return &Viewport{track: t}
}

// SetMetrics sets the collector queries and rebuilds are recorded on.
func (vp *Viewport) SetMetrics(m *metrics.Collector) {
	vp.metrics = m
}

// FitToScreen returns the fitted list for pixelsPerBase, rebuilding it when
// the ratio or the track contents changed since the last fit.
func (vp *Viewport) FitToScreen(pixelsPerBase float64) *List {
	if l := vp.fitted.Load(); l != nil && l.pixelsPerBase == pixelsPerBase && l.version == vp.track.Version() {
		return l
	}

	var l *List
	vp.track.View(func(t *track.Track) {
		l = NewList(Fit(t.Variants(), pixelsPerBase))
		l.pixelsPerBase = pixelsPerBase
		l.version = t.Version()
	})
	vp.fitted.Store(l)
	vp.metrics.FitRebuilt()
	return l
}

// Query searches the last fitted list. It returns nil before the first fit.
func (vp *Viewport) Query(start, stop int64) []Interval {
	l := vp.fitted.Load()
	if l == nil {
		vp.metrics.ObserveQuery(false)
		return nil
	}
	out := l.Query(start, stop)
	vp.metrics.ObserveQuery(len(out) > 0)
	return out
}

// Window fits the track at pixelsPerBase and queries the resulting list.
func (vp *Viewport) Window(pixelsPerBase float64, start, stop int64) []Interval {
	out := vp.FitToScreen(pixelsPerBase).Query(start, stop)
	vp.metrics.ObserveQuery(len(out) > 0)
	return out
}
