// Package asset holds the canonical park asset shape shared by every layer
// above the store gateway.
package asset

import (
	"strings"
	"time"
)

// Condition is one of three ordered severity levels.
type Condition string

const (
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
)

// Conditions lists the levels from least to most severe.
var Conditions = []Condition{ConditionGood, ConditionFair, ConditionPoor}

// Valid reports whether c is one of the three levels.
func (c Condition) Valid() bool {
	return c.Severity() >= 0
}

// Severity returns 0 for good, 1 for fair, 2 for poor and -1 otherwise.
func (c Condition) Severity() int {
	for i, level := range Conditions {
		if c == level {
			return i
		}
	}
	return -1
}

// Labels maps levels to deployment specific display text.
type Labels map[string]string

// Label returns the display text for c, defaulting to the level key.
func (l Labels) Label(c Condition) string {
	if v, ok := l[string(c)]; ok && v != "" {
		return v
	}
	return string(c)
}

// Parse resolves either a level key or one of its display labels.
func (l Labels) Parse(s string) (Condition, bool) {
	s = strings.TrimSpace(s)
	if c := Condition(strings.ToLower(s)); c.Valid() {
		return c, true
	}
	for key, label := range l {
		if label == s && Condition(key).Valid() {
			return Condition(key), true
		}
	}
	return "", false
}

// Coordinates is a WGS84 degree pair. A nil *Coordinates means "not captured";
// the pair is never half set.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Asset is a single registered park facility.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	// ImageRef is the blob key of the asset photo.
	ImageRef string `json:"image_ref"`
	// ImageURL resolves ImageRef for retrieval.
	ImageURL string `json:"image_url,omitempty"`
	// MapRef is the static map URL derived from Location.
	MapRef     string       `json:"map_ref,omitempty"`
	Location   *Coordinates `json:"location,omitempty"`
	RecordedAt time.Time    `json:"recorded_at"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
	// AcquiredAt, when set, is the date filters and reports use instead of RecordedAt.
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	RecordedBy int        `json:"recorded_by,omitempty"`
}

// FilterDate is the timestamp date-range filters compare against.
func (a Asset) FilterDate() time.Time {
	if a.AcquiredAt != nil && !a.AcquiredAt.IsZero() {
		return *a.AcquiredAt
	}
	return a.RecordedAt
}

// BlobRef identifies a stored photo.
type BlobRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// CaptureResult is one photo plus the position it was taken at.
type CaptureResult struct {
	Image    []byte
	MimeType string
	Location Coordinates
}

// Draft is user input for a create or an update.
type Draft struct {
	Name        string
	Category    string
	Condition   Condition
	Description string
	// Capture is nil when no new photo was taken.
	Capture    *CaptureResult
	AcquiredAt *time.Time
	// RecordedAt keeps the original registration time of imported assets.
	// Interactive submissions leave it nil.
	RecordedAt *time.Time
	// SubmissionToken deduplicates retried creates when non-empty.
	SubmissionToken string
	RecordedBy      int
}
