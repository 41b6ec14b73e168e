package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/pkg/common"
	"github.com/yi-nology/park_registry/pkg/lock"
)

// WriteLock serialises asset writes through l. A nil locker returns nil so
// routes can append the result unconditionally.
func WriteLock(l lock.Locker) []app.HandlerFunc {
	if l == nil {
		return nil
	}
	return []app.HandlerFunc{func(ctx context.Context, c *app.RequestContext) {
		token, err := l.Acquire(ctx)
		if err != nil {
			hlog.CtxWarnf(ctx, "[WriteLock] failed to acquire lock: %v", err)
			c.JSON(consts.StatusOK, common.CommonResponse{
				Code:  consts.StatusServiceUnavailable,
				Msg:   "service busy, please retry later",
				Error: err.Error(),
			})
			c.Abort()
			return
		}
		defer func() {
			if releaseErr := l.Release(ctx, token); releaseErr != nil {
				hlog.CtxWarnf(ctx, "[WriteLock] failed to release lock: %v", releaseErr)
			}
		}()
		c.Next(ctx)
	}}
}
