package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/pkg/common"
)

// Logging writes one access line per request.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		user := "-"
		if id, ok := common.GetUserID(ctx); ok {
			user = strconv.Itoa(id)
		}
		hlog.CtxInfof(ctx, "[%s] user=%s %s %s %d %v",
			c.ClientIP(),
			user,
			c.Request.Method(),
			c.Request.URI().Path(),
			c.Response.StatusCode(),
			time.Since(start),
		)
	}
}
