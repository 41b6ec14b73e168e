// Package mapref derives static map image URLs from a coordinate pair.
package mapref

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yi-nology/park_registry/pkg/config"
)

// Builder renders map URLs for one static map service.
type Builder struct {
	baseURL string
	zoom    int
	width   int
	height  int
}

// NewBuilder returns a Builder for the configured service.
func NewBuilder(cfg config.MapConfig) *Builder {
	return &Builder{
		baseURL: cfg.BaseURL,
		zoom:    cfg.Zoom,
		width:   cfg.Width,
		height:  cfg.Height,
	}
}

// URL returns the map image URL for (lat, lon, label). The result depends
// only on its inputs and the builder settings.
func (b *Builder) URL(lat, lon float64, label string) string {
	center := formatCoord(lat) + "," + formatCoord(lon)

	q := url.Values{}
	q.Set("center", center)
	q.Set("zoom", strconv.Itoa(b.zoom))
	q.Set("size", fmt.Sprintf("%dx%d", b.width, b.height))
	marker := center + ",red-pushpin"
	if label = strings.TrimSpace(label); label != "" {
		marker += "," + label
	}
	q.Set("markers", marker)

	sep := "?"
	if strings.Contains(b.baseURL, "?") {
		sep = "&"
	}
	return b.baseURL + sep + q.Encode()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
