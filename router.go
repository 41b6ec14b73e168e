package main

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/yi-nology/park_registry/biz/middleware"
	"github.com/yi-nology/park_registry/biz/router"
)

// register registers all routers.
func register(r *server.Hertz, reg *registry) {
	router.RegisterAssetRoutes(r, reg.handler, middleware.WriteLock(reg.locker))
}
