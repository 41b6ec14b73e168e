package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/pkg/config"
)

// CORS lets the registration and report pages call the API from another
// origin. The operator header is always allowed and report downloads expose
// their file name.
func CORS(cfg *config.CORSConfig) app.HandlerFunc {
	allowOrigin := "*"
	allowMethods := "GET,POST,PUT,DELETE,OPTIONS"
	allowHeaders := "Content-Type," + UserIDHeader
	allowCredentials := "false"

	if cfg != nil {
		if cfg.AllowOrigin != "" {
			allowOrigin = cfg.AllowOrigin
		}
		if cfg.AllowMethods != "" {
			allowMethods = cfg.AllowMethods
		}
		if cfg.AllowHeaders != "" {
			allowHeaders = withHeader(cfg.AllowHeaders, UserIDHeader)
		}
		if cfg.AllowCredentials {
			allowCredentials = "true"
		}
	}

	return func(ctx context.Context, c *app.RequestContext) {
		c.Response.Header.Set("Access-Control-Allow-Origin", allowOrigin)
		c.Response.Header.Set("Access-Control-Allow-Methods", allowMethods)
		c.Response.Header.Set("Access-Control-Allow-Headers", allowHeaders)
		c.Response.Header.Set("Access-Control-Allow-Credentials", allowCredentials)
		c.Response.Header.Set("Access-Control-Expose-Headers", "Content-Disposition")

		if string(c.Request.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}

		c.Next(ctx)
	}
}

// withHeader appends name to a comma separated header list unless the list
// already covers it.
func withHeader(list, name string) string {
	for _, h := range strings.Split(list, ",") {
		h = strings.TrimSpace(h)
		if h == "*" || strings.EqualFold(h, name) {
			return list
		}
	}
	return list + "," + name
}
