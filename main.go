package main

import (
	"context"
	"log"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/middleware"
	"github.com/yi-nology/park_registry/pkg/config"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		log.Fatalf("init registry: %v", err)
	}

	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(int(cfg.Upload.MaxSize)+1<<20),
	)
	h.Use(
		middleware.Recovery(),
		middleware.Auth(),
		middleware.Logging(),
		middleware.CORS(&cfg.CORS),
	)
	register(h, reg)

	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		reg.Close(ctx)
	})

	hlog.Infof("park registry listening on %s", cfg.Server.Address)
	h.Spin()
}
