package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/query"
)

// utf8BOM lets spreadsheet tools detect UTF-8 for non-ASCII text.
const utf8BOM = "\ufeff"

// CSVHeader is the fixed column set of the CSV export.
var CSVHeader = []string{
	"id", "name", "category", "condition", "description",
	"latitude", "longitude", "recorded_at", "updated_at", "image_ref", "map_ref",
}

// CSV writes one row per asset. Quoting of commas, quotes and newlines is
// left to encoding/csv.
func (e *Exporter) CSV(ctx context.Context, assets []asset.Asset, r query.DateRange) (*File, error) {
	if len(assets) == 0 {
		return nil, ErrEmptyReport
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, a := range assets {
		if err := w.Write(csvRow(a, e.loc)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	name := FileName("csv", r, e.now().In(e.loc))
	hlog.CtxInfof(ctx, "csv report %s generated with %d assets", name, len(assets))
	return &File{Name: name, ContentType: "text/csv; charset=utf-8", Data: buf.Bytes()}, nil
}

func csvRow(a asset.Asset, loc *time.Location) []string {
	var lat, lon, updated string
	if a.Location != nil {
		lat = strconv.FormatFloat(a.Location.Latitude, 'f', -1, 64)
		lon = strconv.FormatFloat(a.Location.Longitude, 'f', -1, 64)
	}
	if a.UpdatedAt != nil {
		updated = a.UpdatedAt.In(loc).Format(time.RFC3339Nano)
	}
	return []string{
		a.ID,
		a.Name,
		a.Category,
		string(a.Condition),
		a.Description,
		lat,
		lon,
		a.RecordedAt.In(loc).Format(time.RFC3339Nano),
		updated,
		a.ImageRef,
		a.MapRef,
	}
}
