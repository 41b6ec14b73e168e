package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/pkg/common"
)

// Recovery returns a middleware that recovers from panics and logs the error.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				hlog.CtxErrorf(ctx, "panic recovered: %v\n%s", err, debug.Stack())
				c.JSON(consts.StatusOK, common.CommonResponse{
					Code:  consts.StatusInternalServerError,
					Msg:   "internal server error",
					Error: fmt.Sprintf("%v", err),
				})
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}
