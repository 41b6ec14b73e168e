package version

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/park_registry/pkg/common"
)

// Version information, injected at build time via -ldflags.
var (
	AppVersion   = "dev"
	AppGitCommit = "unknown"
	AppBuildTime = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// GetVersion .
// @router /api/v1/version [GET]
func GetVersion(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code: consts.StatusOK,
		Msg:  "success",
		Data: Info{Version: AppVersion, GitCommit: AppGitCommit, BuildTime: AppBuildTime},
	})
}
