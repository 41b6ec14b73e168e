// Package query filters the in-memory record set by date range.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yi-nology/park_registry/biz/model/asset"
)

// DateLayout is the wire format of range bounds.
const DateLayout = "2006-01-02"

// DateRange is an inclusive day range. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseRange reads YYYY-MM-DD bounds in loc. Empty strings leave the bound open.
func ParseRange(start, end string, loc *time.Location) (DateRange, error) {
	var r DateRange
	if loc == nil {
		loc = time.Local
	}
	if s := strings.TrimSpace(start); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return r, fmt.Errorf("start: %w", err)
		}
		r.Start = t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return r, fmt.Errorf("end: %w", err)
		}
		r.End = t
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("end %s is before start %s", end, start)
	}
	return r, nil
}

// Unbounded reports whether neither bound is set.
func (r DateRange) Unbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Bounds returns the normalised instants: start of the start day and the last
// millisecond of the end day, both in the bound's own location.
func (r DateRange) Bounds() (from, to time.Time) {
	if !r.Start.IsZero() {
		y, m, d := r.Start.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, r.Start.Location())
	}
	if !r.End.IsZero() {
		y, m, d := r.End.Date()
		to = time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), r.End.Location())
	}
	return from, to
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	from, to := r.Bounds()
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// Filter returns the assets whose filter date lies within r, preserving
// input order. An unbounded range returns every asset.
func Filter(assets []asset.Asset, r DateRange) []asset.Asset {
	out := make([]asset.Asset, 0, len(assets))
	for _, a := range assets {
		if r.Contains(a.FilterDate()) {
			out = append(out, a)
		}
	}
	return out
}

// SortByRecordedDesc orders a copy of assets newest first.
func SortByRecordedDesc(assets []asset.Asset) []asset.Asset {
	out := append([]asset.Asset(nil), assets...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out
}
