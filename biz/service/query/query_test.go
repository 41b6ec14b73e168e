package query

import (
	"testing"
	"time"

	"github.com/yi-nology/park_registry/biz/model/asset"
)

var seoul = time.FixedZone("KST", 9*60*60)

func at(day string, h, m, s, ms int) time.Time {
	d, _ := time.ParseInLocation(DateLayout, day, seoul)
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(ms)*time.Millisecond)
}

func TestFilterInclusiveBoundaries(t *testing.T) {
	assets := []asset.Asset{
		{ID: "before", RecordedAt: at("2026-10-09", 23, 59, 59, 999)},
		{ID: "start", RecordedAt: at("2026-10-10", 0, 0, 0, 0)},
		{ID: "end", RecordedAt: at("2026-10-12", 23, 59, 59, 999)},
		{ID: "after", RecordedAt: at("2026-10-13", 0, 0, 0, 0)},
	}
	r, err := ParseRange("2026-10-10", "2026-10-12", seoul)
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}

	got := Filter(assets, r)
	if len(got) != 2 || got[0].ID != "start" || got[1].ID != "end" {
		t.Fatalf("expected start and end, got %+v", got)
	}
}

func TestFilterUnboundedKeepsOrder(t *testing.T) {
	assets := []asset.Asset{
		{ID: "c", RecordedAt: at("2026-01-03", 0, 0, 0, 0)},
		{ID: "a", RecordedAt: at("2026-01-01", 0, 0, 0, 0)},
		{ID: "b", RecordedAt: at("2026-01-02", 0, 0, 0, 0)},
	}
	got := Filter(assets, DateRange{})
	if len(got) != len(assets) {
		t.Fatalf("expected %d assets, got %d", len(assets), len(got))
	}
	for i := range assets {
		if got[i].ID != assets[i].ID {
			t.Fatalf("order changed at %d: %s", i, got[i].ID)
		}
	}
}

func TestFilterHalfOpen(t *testing.T) {
	assets := []asset.Asset{
		{ID: "old", RecordedAt: at("2025-12-31", 12, 0, 0, 0)},
		{ID: "new", RecordedAt: at("2026-02-01", 12, 0, 0, 0)},
	}
	r, _ := ParseRange("2026-01-01", "", seoul)
	if got := Filter(assets, r); len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("start-only range: %+v", got)
	}
	r, _ = ParseRange("", "2026-01-01", seoul)
	if got := Filter(assets, r); len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("end-only range: %+v", got)
	}
}

func TestFilterPrefersAcquiredAt(t *testing.T) {
	acquired := at("2020-05-05", 8, 0, 0, 0)
	assets := []asset.Asset{{ID: "x", RecordedAt: at("2026-10-15", 9, 0, 0, 0), AcquiredAt: &acquired}}

	r, _ := ParseRange("2020-05-05", "2020-05-05", seoul)
	if got := Filter(assets, r); len(got) != 1 {
		t.Fatal("expected match on acquisition date")
	}
}

func TestBenchScenario(t *testing.T) {
	bench := asset.Asset{
		ID: "bench-a", Name: "Bench A", Category: "bench", Condition: asset.ConditionGood,
		Description: "near gate 3", Location: &asset.Coordinates{Latitude: 37.1, Longitude: 127.0},
		RecordedAt: at("2026-10-15", 14, 30, 0, 0),
	}

	same, _ := ParseRange("2026-10-15", "2026-10-15", seoul)
	if got := Filter([]asset.Asset{bench}, same); len(got) != 1 || got[0].ID != "bench-a" {
		t.Fatalf("expected Bench A, got %+v", got)
	}
	disjoint, _ := ParseRange("2026-09-01", "2026-09-30", seoul)
	if got := Filter([]asset.Asset{bench}, disjoint); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestParseRangeErrors(t *testing.T) {
	tests := []struct{ start, end string }{
		{"2026/10/15", ""},
		{"", "yesterday"},
		{"2026-10-15", "2026-10-14"},
	}
	for _, tt := range tests {
		if _, err := ParseRange(tt.start, tt.end, seoul); err == nil {
			t.Errorf("ParseRange(%q, %q) expected error", tt.start, tt.end)
		}
	}
}

func TestSortByRecordedDesc(t *testing.T) {
	in := []asset.Asset{
		{ID: "a", RecordedAt: at("2026-01-01", 0, 0, 0, 0)},
		{ID: "c", RecordedAt: at("2026-03-01", 0, 0, 0, 0)},
		{ID: "b", RecordedAt: at("2026-02-01", 0, 0, 0, 0)},
	}
	got := SortByRecordedDesc(in)
	if got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Fatalf("unexpected order %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
	if in[0].ID != "a" {
		t.Fatal("input must not be reordered")
	}
}
