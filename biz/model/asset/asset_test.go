package asset

import (
	"errors"
	"testing"
	"time"
)

func TestConditionSeverity(t *testing.T) {
	if ConditionGood.Severity() >= ConditionFair.Severity() || ConditionFair.Severity() >= ConditionPoor.Severity() {
		t.Fatal("levels must be ordered good < fair < poor")
	}
	if Condition("excellent").Valid() {
		t.Fatal("unexpected level accepted")
	}
}

func TestLabelsParse(t *testing.T) {
	labels := Labels{"good": "좋음", "fair": "보통", "poor": "나쁨"}

	tests := []struct {
		in   string
		want Condition
		ok   bool
	}{
		{"good", ConditionGood, true},
		{" POOR ", ConditionPoor, true},
		{"보통", ConditionFair, true},
		{"excellent", "", false},
	}
	for _, tt := range tests {
		got, ok := labels.Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if labels.Label(ConditionPoor) != "나쁨" {
		t.Fatalf("unexpected label %s", labels.Label(ConditionPoor))
	}
	if Labels(nil).Label(ConditionFair) != "fair" {
		t.Fatal("nil labels should fall back to the key")
	}
}

func TestFilterDatePrefersAcquiredAt(t *testing.T) {
	recorded := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	acquired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	a := Asset{RecordedAt: recorded}
	if !a.FilterDate().Equal(recorded) {
		t.Fatal("expected recorded date")
	}
	a.AcquiredAt = &acquired
	if !a.FilterDate().Equal(acquired) {
		t.Fatal("expected acquisition date")
	}
}

func TestErrorKinds(t *testing.T) {
	err := Validation(FieldError{Field: "name", Err: ErrRequired})
	if !IsKind(err, KindValidation) {
		t.Fatal("expected validation kind")
	}
	if err.Field() != "name" {
		t.Fatalf("expected field name, got %s", err.Field())
	}
	if !errors.Is(err, ErrRequired) {
		t.Fatal("expected ErrRequired in chain")
	}
	if err.Error() != "ValidationError: name is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	wrapped := Wrap(KindCapture, "capture", ErrCameraUnavailable)
	if !errors.Is(wrapped, ErrCameraUnavailable) || KindOf(wrapped) != KindCapture {
		t.Fatal("capture error lost its cause")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Fatal("untyped errors have no kind")
	}
}
