package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/yi-nology/park_registry/biz/handler"
	"github.com/yi-nology/park_registry/biz/handler/version"
)

// RegisterAssetRoutes configures the registration, inquiry and report APIs.
// writeMw runs in front of every route that changes assets.
func RegisterAssetRoutes(r *server.Hertz, h *handler.AssetHandler, writeMw []app.HandlerFunc) {
	if h == nil {
		return
	}

	v1 := r.Group("/api/v1")

	assets := v1.Group("/assets")
	assets.GET("", h.List)
	assets.GET("/:id", h.Get)
	assets.POST("", chain(writeMw, h.Create)...)
	assets.PUT("/:id", chain(writeMw, h.Update)...)
	assets.DELETE("/:id", chain(writeMw, h.Delete)...)

	reports := v1.Group("/reports")
	reports.GET("/csv", h.ExportCSV)
	reports.GET("/pdf", h.ExportPDF)

	v1.GET("/photos/*key", h.Photo)
	v1.GET("/version", version.GetVersion)

	r.GET("/ping", handler.Ping)
}

func chain(mw []app.HandlerFunc, h app.HandlerFunc) []app.HandlerFunc {
	out := make([]app.HandlerFunc, 0, len(mw)+1)
	return append(append(out, mw...), h)
}
