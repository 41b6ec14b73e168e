package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/report"
	"github.com/yi-nology/park_registry/pkg/common"
)

// Ping answers liveness probes.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"message": "pong"})
}

type fieldMessage struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func respondOK(c *app.RequestContext, data any) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code: consts.StatusOK,
		Msg:  http.StatusText(consts.StatusOK),
		Data: data,
	})
}

func writeBadRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code:  consts.StatusBadRequest,
		Msg:   err.Error(),
		Error: err.Error(),
	})
}

// writeError maps a typed failure onto the response envelope. The HTTP
// status stays 200; the code field carries the outcome.
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	resp := common.CommonResponse{Msg: err.Error(), Error: err.Error()}

	var typed *asset.Error
	errors.As(err, &typed)
	switch asset.KindOf(err) {
	case asset.KindValidation:
		resp.Code = consts.StatusBadRequest
		fields := make([]fieldMessage, 0, len(typed.Fields))
		for _, f := range typed.Fields {
			fields = append(fields, fieldMessage{Field: f.Field, Error: f.Err.Error()})
		}
		resp.Data = map[string]any{"fields": fields}
	case asset.KindCapture:
		resp.Code = consts.StatusUnprocessableEntity
	case asset.KindNotFound:
		resp.Code = consts.StatusNotFound
	case asset.KindUpload:
		resp.Code = consts.StatusBadGateway
	case asset.KindSubscription:
		resp.Code = consts.StatusServiceUnavailable
		resp.Msg = asset.ErrDataUnavailable.Error()
	case asset.KindWrite:
		resp.Code = consts.StatusInternalServerError
	default:
		switch {
		case errors.Is(err, report.ErrEmptyReport):
			resp.Code = consts.StatusNotFound
		case errors.Is(err, asset.ErrNotFound):
			resp.Code = consts.StatusNotFound
		default:
			resp.Code = consts.StatusInternalServerError
			resp.Msg = "internal error"
		}
	}

	if resp.Code >= consts.StatusInternalServerError {
		hlog.CtxErrorf(ctx, "%s %s failed: %v", c.Request.Method(), c.Request.URI().Path(), err)
	}
	c.JSON(consts.StatusOK, resp)
}
