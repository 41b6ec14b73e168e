package middleware

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/yi-nology/park_registry/pkg/common"
)

// UserIDHeader carries the operator id recorded on registered assets.
const UserIDHeader = "X-User-Id"

// Auth extracts the operator id from the X-User-Id header into the context.
// It does not enforce authentication; anonymous requests are recorded with
// no operator.
func Auth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if userHeader := c.GetHeader(UserIDHeader); len(userHeader) > 0 {
			if id, err := strconv.Atoi(string(userHeader)); err == nil && id > 0 {
				ctx = common.ContextWithUserID(ctx, id)
			}
		}
		c.Next(ctx)
	}
}
