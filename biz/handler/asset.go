package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/capture"
	"github.com/yi-nology/park_registry/biz/service/lifecycle"
	"github.com/yi-nology/park_registry/biz/service/query"
	"github.com/yi-nology/park_registry/biz/service/report"
	"github.com/yi-nology/park_registry/pkg/common"
	"github.com/yi-nology/park_registry/pkg/storage"
	"github.com/yi-nology/park_registry/pkg/validator"
)

// snapshotWait bounds how long a read waits for the first record snapshot.
const snapshotWait = 5 * time.Second

// Records reads single records and stored photos.
type Records interface {
	GetRecord(ctx context.Context, id string) (*asset.Asset, error)
	OpenBlob(ctx context.Context, key string) (io.ReadCloser, error)
}

// Snapshotter serves the live record set.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]asset.Asset, error)
}

// AssetHandler serves the registration, inquiry and report stages.
type AssetHandler struct {
	manager  *lifecycle.Manager
	records  Records
	set      Snapshotter
	exporter *report.Exporter
	upload   *validator.UploadConfig
	labels   asset.Labels
	loc      *time.Location
}

// NewAssetHandler wires the handler to its services.
func NewAssetHandler(manager *lifecycle.Manager, records Records, set Snapshotter, exporter *report.Exporter,
	upload *validator.UploadConfig, labels asset.Labels, loc *time.Location) *AssetHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AssetHandler{
		manager:  manager,
		records:  records,
		set:      set,
		exporter: exporter,
		upload:   upload,
		labels:   labels,
		loc:      loc,
	}
}

type assetView struct {
	asset.Asset
	ConditionLabel string `json:"condition_label"`
}

func (h *AssetHandler) view(a asset.Asset) assetView {
	return assetView{Asset: a, ConditionLabel: h.labels.Label(a.Condition)}
}

// Create registers a new asset from a multipart form carrying the photo and
// the position it was taken at.
func (h *AssetHandler) Create(ctx context.Context, c *app.RequestContext) {
	draft, err := h.draft(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	draft.SubmissionToken = c.PostForm("submission_token")

	if draft.Capture, err = h.capture(ctx, c); err != nil {
		writeError(ctx, c, err)
		return
	}

	created, err := h.manager.SubmitCreate(ctx, draft)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	respondOK(c, h.view(*created))
}

// Update rewrites an asset. Without a new photo the existing photo,
// coordinates and map reference are kept.
func (h *AssetHandler) Update(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	draft, err := h.draft(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	if draft.Capture, err = h.capture(ctx, c); err != nil {
		writeError(ctx, c, err)
		return
	}

	// A client-sent image_ref is only a consistency check; the manager
	// refuses one that is not the stored photo.
	previous := strings.TrimSpace(c.PostForm("image_ref"))
	if previous == "" {
		current, err := h.records.GetRecord(ctx, id)
		if err != nil {
			writeError(ctx, c, notFound("update record", err))
			return
		}
		previous = current.ImageRef
	}

	updated, err := h.manager.SubmitUpdate(ctx, id, draft, previous)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	respondOK(c, h.view(*updated))
}

// Delete removes an asset and then its stored photo. Deleting an unknown id
// succeeds. An image_ref query value must match the stored photo.
func (h *AssetHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	result, err := h.manager.DeleteAsset(ctx, id, c.Query("image_ref"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	msg := http.StatusText(consts.StatusOK)
	if result.BlobWarning != nil {
		msg = "asset deleted; " + result.BlobWarning.Error()
	}
	c.JSON(consts.StatusOK, common.CommonResponse{Code: consts.StatusOK, Msg: msg, Data: map[string]any{"id": id}})
}

// Get returns one asset.
func (h *AssetHandler) Get(ctx context.Context, c *app.RequestContext) {
	a, err := h.records.GetRecord(ctx, c.Param("id"))
	if err != nil {
		writeError(ctx, c, notFound("get record", err))
		return
	}
	respondOK(c, h.view(*a))
}

// List answers the inquiry stage: the live record set filtered by the
// optional start/end dates, newest first.
func (h *AssetHandler) List(ctx context.Context, c *app.RequestContext) {
	assets, r, err := h.filtered(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	assets = query.SortByRecordedDesc(assets)

	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, h.view(a))
	}
	respondOK(c, map[string]any{
		"assets": views,
		"total":  len(views),
		"start":  formatBound(r.Start),
		"end":    formatBound(r.End),
	})
}

// ExportCSV downloads the filtered set as CSV.
func (h *AssetHandler) ExportCSV(ctx context.Context, c *app.RequestContext) {
	h.export(ctx, c, h.exporter.CSV)
}

// ExportPDF downloads the filtered set as PDF.
func (h *AssetHandler) ExportPDF(ctx context.Context, c *app.RequestContext) {
	h.export(ctx, c, h.exporter.PDF)
}

func (h *AssetHandler) export(ctx context.Context, c *app.RequestContext,
	render func(context.Context, []asset.Asset, query.DateRange) (*report.File, error)) {
	assets, r, err := h.filtered(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	file, err := render(ctx, query.SortByRecordedDesc(assets), r)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Name))
	c.Data(consts.StatusOK, file.ContentType, file.Data)
}

// Photo streams a stored photo back to the client.
func (h *AssetHandler) Photo(ctx context.Context, c *app.RequestContext) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		writeBadRequest(c, errors.New("photo key is required"))
		return
	}
	rc, err := h.records.OpenBlob(ctx, key)
	if err != nil {
		writeError(ctx, c, notFound("open photo", err))
		return
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.Response.Header.Set("Cache-Control", "public, max-age=86400")
	c.Data(consts.StatusOK, http.DetectContentType(data), data)
}

func (h *AssetHandler) filtered(ctx context.Context, c *app.RequestContext) ([]asset.Asset, query.DateRange, error) {
	r, err := query.ParseRange(c.Query("start"), c.Query("end"), h.loc)
	if err != nil {
		return nil, r, asset.Validation(asset.FieldError{Field: "date_range", Err: err})
	}
	waitCtx, cancel := context.WithTimeout(ctx, snapshotWait)
	defer cancel()
	all, err := h.set.Snapshot(waitCtx)
	if err != nil {
		return nil, r, err
	}
	return query.Filter(all, r), r, nil
}

// draft reads the text fields shared by create and update.
func (h *AssetHandler) draft(ctx context.Context, c *app.RequestContext) (asset.Draft, error) {
	d := asset.Draft{
		Name:        c.PostForm("name"),
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
	}
	if raw := strings.TrimSpace(c.PostForm("condition")); raw != "" {
		if level, ok := h.labels.Parse(raw); ok {
			d.Condition = level
		} else {
			d.Condition = asset.Condition(raw)
		}
	}
	if raw := strings.TrimSpace(c.PostForm("acquired_at")); raw != "" {
		t, err := time.ParseInLocation(query.DateLayout, raw, h.loc)
		if err != nil {
			return d, asset.Validation(asset.FieldError{Field: "acquired_at", Err: asset.ErrInvalid})
		}
		d.AcquiredAt = &t
	}
	if id, ok := common.GetUserID(ctx); ok {
		d.RecordedBy = id
	}
	return d, nil
}

// capture runs a capture over the uploaded photo and form coordinates. No
// photo means no new capture.
func (h *AssetHandler) capture(ctx context.Context, c *app.RequestContext) (*asset.CaptureResult, error) {
	header, err := c.FormFile("photo")
	if err != nil || header == nil {
		return nil, nil
	}
	adapter := capture.NewAdapter(
		capture.FormCamera{Header: header, MaxSize: h.upload.MaxFileSize},
		capture.FormLocator{Latitude: c.PostForm("latitude"), Longitude: c.PostForm("longitude")},
		capture.PhotoEncoder(h.upload),
	)
	defer func() { _ = adapter.Close() }()
	return adapter.Capture(ctx)
}

func notFound(op string, err error) error {
	if errors.Is(err, asset.ErrNotFound) || errors.Is(err, storage.ErrObjectNotFound) {
		return asset.Wrap(asset.KindNotFound, op, err)
	}
	if asset.KindOf(err) != 0 {
		return err
	}
	return asset.Wrap(asset.KindWrite, op, err)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(query.DateLayout)
}
