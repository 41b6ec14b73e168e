package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/go-pdf/fpdf"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/query"
)

const (
	unicodeFamily = "registry"
	coreFamily    = "Helvetica"
	rowHeight     = 7.0
	cardHeight    = 58.0
	cardImageW    = 60.0
	cardImageH    = 45.0
	// keeps the description inside its card
	maxCardDescription = 280
)

type column struct {
	title string
	width float64
	value func(a asset.Asset) string
}

// document wraps fpdf with the font chosen for this export.
type document struct {
	pdf    *fpdf.Fpdf
	family string
	bold   string
	tr     func(string) string
}

// PDF renders a title block, the date range and then either a fixed-width
// table or one card per asset.
func (e *Exporter) PDF(ctx context.Context, assets []asset.Asset, r query.DateRange) (*File, error) {
	if len(assets) == 0 {
		return nil, ErrEmptyReport
	}

	orientation := "L"
	if e.layout == LayoutCards {
		orientation = "P"
	}
	doc := e.newDocument(ctx, orientation)
	doc.pdf.AliasNbPages("")
	doc.pdf.SetFooterFunc(func() {
		doc.pdf.SetY(-12)
		doc.font("", 8)
		doc.pdf.CellFormat(0, 6, fmt.Sprintf("%d / {nb}", doc.pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.pdf.AddPage()
	e.titleBlock(doc, r, len(assets))
	if e.layout == LayoutCards {
		e.cards(ctx, doc, assets)
	} else {
		e.table(doc, assets)
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	name := FileName("pdf", r, e.now().In(e.loc))
	hlog.CtxInfof(ctx, "pdf report %s generated with %d assets (%s layout)", name, len(assets), e.layout)
	return &File{Name: name, ContentType: "application/pdf", Data: buf.Bytes()}, nil
}

// newDocument embeds the configured TTF font. Without one, a core font is
// used and characters outside cp1252 come out garbled instead of failing.
func (e *Exporter) newDocument(ctx context.Context, orientation string) *document {
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(e.title, true)
	pdf.SetCreator("park_registry", true)

	if e.fontPath != "" {
		pdf.AddUTF8Font(unicodeFamily, "", e.fontPath)
		if !pdf.Err() {
			return &document{pdf: pdf, family: unicodeFamily, tr: func(s string) string { return s }}
		}
		hlog.CtxWarnf(ctx, "report font %s unusable, falling back to %s: %v", e.fontPath, coreFamily, pdf.Error())
		pdf.ClearError()
	}
	return &document{pdf: pdf, family: coreFamily, bold: "B", tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) font(style string, size float64) {
	if style == "B" {
		style = d.bold
	}
	d.pdf.SetFont(d.family, style, size)
}

// fit truncates s so that it fits in width w.
func (d *document) fit(s string, w float64) string {
	limit := w - 2
	if d.pdf.GetStringWidth(d.tr(s)) <= limit {
		return d.tr(s)
	}
	runes := []rune(s)
	for len(runes) > 0 && d.pdf.GetStringWidth(d.tr(string(runes)+"...")) > limit {
		runes = runes[:len(runes)-1]
	}
	return d.tr(string(runes) + "...")
}

func (e *Exporter) titleBlock(doc *document, r query.DateRange, count int) {
	doc.font("B", 16)
	doc.pdf.CellFormat(0, 10, doc.tr(e.title), "", 1, "L", false, 0, "")
	doc.font("", 10)
	doc.pdf.CellFormat(0, 6, doc.tr("Period: "+e.rangeLabel(r)), "", 1, "L", false, 0, "")
	doc.pdf.CellFormat(0, 6, doc.tr(fmt.Sprintf("Assets: %d    Generated: %s", count, e.stamp(e.now()))), "", 1, "L", false, 0, "")
	doc.pdf.Ln(4)
}

func (e *Exporter) columns() []column {
	coord := func(a asset.Asset, lat bool) string {
		if a.Location == nil {
			return "-"
		}
		v := a.Location.Longitude
		if lat {
			v = a.Location.Latitude
		}
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
	ref := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return []column{
		{"Name", 40, func(a asset.Asset) string { return a.Name }},
		{"Category", 28, func(a asset.Asset) string { return a.Category }},
		{"Condition", 20, func(a asset.Asset) string { return e.labels.Label(a.Condition) }},
		{"Description", 64, func(a asset.Asset) string { return a.Description }},
		{"Latitude", 22, func(a asset.Asset) string { return coord(a, true) }},
		{"Longitude", 22, func(a asset.Asset) string { return coord(a, false) }},
		{"Recorded", 35, func(a asset.Asset) string { return e.stamp(a.RecordedAt) }},
		{"Photo", 23, func(a asset.Asset) string { return ref(a.ImageRef) }},
		{"Map", 23, func(a asset.Asset) string { return ref(a.MapRef) }},
	}
}

func (e *Exporter) table(doc *document, assets []asset.Asset) {
	cols := e.columns()
	header := func() {
		doc.font("B", 9)
		doc.pdf.SetFillColor(220, 235, 220)
		for _, c := range cols {
			doc.pdf.CellFormat(c.width, rowHeight, doc.tr(c.title), "1", 0, "C", true, 0, "")
		}
		doc.pdf.Ln(-1)
		doc.font("", 8)
	}

	header()
	for _, a := range assets {
		if doc.needsPage(rowHeight) {
			doc.pdf.AddPage()
			header()
		}
		for _, c := range cols {
			doc.pdf.CellFormat(c.width, rowHeight, doc.fit(c.value(a), c.width), "1", 0, "L", false, 0, "")
		}
		doc.pdf.Ln(-1)
	}
}

// needsPage reports whether h no longer fits above the bottom margin.
func (d *document) needsPage(h float64) bool {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	return d.pdf.GetY()+h > pageH-bottom
}

func (e *Exporter) cards(ctx context.Context, doc *document, assets []asset.Asset) {
	left, _, right, _ := doc.pdf.GetMargins()
	pageW, _ := doc.pdf.GetPageSize()
	textX := left + 2*cardImageW + 6
	textW := pageW - right - textX

	for i, a := range assets {
		if doc.needsPage(cardHeight) {
			doc.pdf.AddPage()
		}
		top := doc.pdf.GetY()
		doc.pdf.Rect(left, top, pageW-left-right, cardHeight-4, "D")

		e.photo(ctx, doc, fmt.Sprintf("photo-%d", i), a.ImageRef, left+2, top+2)
		e.mapImage(ctx, doc, fmt.Sprintf("map-%d", i), a.MapRef, left+cardImageW+4, top+2)

		doc.pdf.SetXY(textX, top+2)
		doc.font("B", 11)
		doc.pdf.CellFormat(textW, 6, doc.fit(a.Name, textW), "", 2, "L", false, 0, "")
		doc.font("", 9)
		lines := []string{
			"Category: " + a.Category,
			"Condition: " + e.labels.Label(a.Condition),
			"Recorded: " + e.stamp(a.RecordedAt),
		}
		if a.Location != nil {
			lines = append(lines, fmt.Sprintf("Location: %.6f, %.6f", a.Location.Latitude, a.Location.Longitude))
		}
		for _, l := range lines {
			doc.pdf.CellFormat(textW, 5, doc.fit(l, textW), "", 2, "L", false, 0, "")
		}
		doc.pdf.SetX(textX)
		doc.pdf.MultiCell(textW, 4.5, doc.tr(clip(a.Description, maxCardDescription)), "", "L", false)

		doc.pdf.SetXY(left, top+cardHeight)
	}
}

func (e *Exporter) photo(ctx context.Context, doc *document, name, key string, x, y float64) {
	if e.blobs == nil || key == "" {
		e.placeholder(doc, "no photo", x, y)
		return
	}
	rc, err := e.blobs.OpenBlob(ctx, key)
	if err != nil {
		hlog.CtxWarnf(ctx, "report photo %s unavailable: %v", key, err)
		e.placeholder(doc, "photo unavailable", x, y)
		return
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		hlog.CtxWarnf(ctx, "read report photo %s: %v", key, err)
		e.placeholder(doc, "photo unavailable", x, y)
		return
	}
	e.embed(ctx, doc, name, data, x, y)
}

func (e *Exporter) mapImage(ctx context.Context, doc *document, name, url string, x, y float64) {
	if e.fetcher == nil || url == "" {
		e.placeholder(doc, "no map", x, y)
		return
	}
	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		hlog.CtxWarnf(ctx, "report map image unavailable: %v", err)
		e.placeholder(doc, "map unavailable", x, y)
		return
	}
	e.embed(ctx, doc, name, data, x, y)
}

func (e *Exporter) embed(ctx context.Context, doc *document, name string, data []byte, x, y float64) {
	imageType := pdfImageType(http.DetectContentType(data))
	if imageType == "" {
		e.placeholder(doc, "unsupported image", x, y)
		return
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	doc.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if doc.pdf.Err() {
		hlog.CtxWarnf(ctx, "embed %s: %v", name, doc.pdf.Error())
		doc.pdf.ClearError()
		e.placeholder(doc, "unreadable image", x, y)
		return
	}
	doc.pdf.ImageOptions(name, x, y, cardImageW, cardImageH, false, opts, 0, "")
}

func (e *Exporter) placeholder(doc *document, text string, x, y float64) {
	doc.pdf.SetXY(x, y)
	doc.font("", 8)
	doc.pdf.SetFillColor(240, 240, 240)
	doc.pdf.CellFormat(cardImageW, cardImageH, doc.tr(text), "1", 0, "C", true, 0, "")
}

func pdfImageType(mime string) string {
	switch mime {
	case "image/jpeg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
