// Package report serialises a filtered asset set to CSV and PDF downloads.
package report

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/query"
	"github.com/yi-nology/park_registry/pkg/config"
)

// ErrEmptyReport is returned instead of producing a file for an empty set.
var ErrEmptyReport = errors.New("no assets in the selected period")

const (
	LayoutTable = "table"
	LayoutCards = "cards"
)

// File is a generated export ready for download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// BlobOpener reads stored photos for embedding.
type BlobOpener interface {
	OpenBlob(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageFetcher downloads remote images such as static map tiles.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Exporter renders reports. The CSV and PDF paths share no state.
type Exporter struct {
	title    string
	fontPath string
	layout   string
	labels   asset.Labels
	loc      *time.Location
	blobs    BlobOpener
	fetcher  ImageFetcher
	now      func() time.Time
}

// NewExporter builds an Exporter. blobs and fetcher may be nil, in which case
// the cards layout prints placeholders instead of images.
func NewExporter(cfg config.ReportConfig, labels asset.Labels, loc *time.Location, blobs BlobOpener, fetcher ImageFetcher) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	layout := cfg.Layout
	if layout != LayoutCards {
		layout = LayoutTable
	}
	return &Exporter{
		title:    cfg.Title,
		fontPath: cfg.FontPath,
		layout:   layout,
		labels:   labels,
		loc:      loc,
		blobs:    blobs,
		fetcher:  fetcher,
		now:      time.Now,
	}
}

// FileName builds park_asset_report_<start>_to_<end>.<ext>; an open bound is
// replaced by the generation date.
func FileName(ext string, r query.DateRange, now time.Time) string {
	start, end := now.Format(query.DateLayout), now.Format(query.DateLayout)
	if !r.Start.IsZero() {
		start = r.Start.Format(query.DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(query.DateLayout)
	}
	return "park_asset_report_" + start + "_to_" + end + "." + ext
}

func (e *Exporter) rangeLabel(r query.DateRange) string {
	if r.Unbounded() {
		return "All records"
	}
	start, end := "...", "..."
	if !r.Start.IsZero() {
		start = r.Start.Format(query.DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(query.DateLayout)
	}
	return start + " ~ " + end
}

func (e *Exporter) stamp(t time.Time) string {
	return t.In(e.loc).Format("2006-01-02 15:04")
}
