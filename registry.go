package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/yi-nology/park_registry/biz/dal/gateway"
	"github.com/yi-nology/park_registry/biz/handler"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/lifecycle"
	"github.com/yi-nology/park_registry/biz/service/recordset"
	"github.com/yi-nology/park_registry/biz/service/report"
	"github.com/yi-nology/park_registry/pkg/config"
	"github.com/yi-nology/park_registry/pkg/database"
	"github.com/yi-nology/park_registry/pkg/idempotency"
	"github.com/yi-nology/park_registry/pkg/lock"
	"github.com/yi-nology/park_registry/pkg/mapref"
	pkgredis "github.com/yi-nology/park_registry/pkg/redis"
	"github.com/yi-nology/park_registry/pkg/storage"
	"github.com/yi-nology/park_registry/pkg/validator"

	"gorm.io/gorm"
)

const (
	writeLockKey     = "park_registry:write_lock"
	writeLockTTL     = 30 * time.Second
	writeLockWait    = 10 * time.Second
	submissionPrefix = "park_registry:submission:"
	mapFetchTimeout  = 10 * time.Second
	mapFetchMaxBytes = 5 << 20
)

// registry holds the long-lived collaborators of the server process.
type registry struct {
	db      *gorm.DB
	rdb     *goredis.Client
	records *recordset.Set
	locker  lock.Locker
	handler *handler.AssetHandler
	cancel  context.CancelFunc
}

func newRegistry(cfg *config.Config) (*registry, error) {
	dbConn, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	hlog.Infof("photo storage: %s", store.Type())

	rdb, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &registry{db: dbConn, rdb: rdb, cancel: cancel}

	var gwOpts []gateway.Option
	var tokens idempotency.Store = idempotency.NewMemoryStore(cfg.Registry.SubmissionTokenTTL)
	reg.locker = lock.NewLocal(writeLockWait)
	if rdb != nil {
		gwOpts = append(gwOpts, gateway.WithNotifier(pkgredis.NewFeed(rdb, cfg.Redis.Channel, uuid.NewString())))
		tokens = idempotency.NewRedisStore(rdb, submissionPrefix, cfg.Registry.SubmissionTokenTTL)
		reg.locker = lock.NewDistributed(rdb, writeLockKey, writeLockTTL, writeLockWait)
	}

	gw := gateway.New(dbConn, store, gwOpts...)
	if err := gw.Start(ctx); err != nil {
		hlog.Warnf("cross-process change feed disabled: %v", err)
	}

	reg.records = recordset.New(gw)
	reg.records.Start(ctx)

	loc := cfg.Registry.Location()
	labels := asset.Labels(cfg.Registry.ConditionLabels)

	manager := lifecycle.NewManager(gw, mapref.NewBuilder(cfg.Map),
		lifecycle.Rules{Categories: cfg.Registry.Categories},
		lifecycle.WithTokens(tokens),
		lifecycle.WithReclaim(cfg.Registry.ReclaimReplacedPhotos),
		lifecycle.WithObserver(func(tr lifecycle.Transition) {
			hlog.Debugf("%s submission %s -> %s", tr.Op, tr.From, tr.To)
		}),
	)

	fetcher, err := report.NewHTTPFetcher(mapFetchTimeout, mapFetchMaxBytes)
	if err != nil {
		reg.Close(ctx)
		return nil, err
	}
	exporter := report.NewExporter(cfg.Report, labels, loc, gw, fetcher)
	upload := validator.NewUploadConfig(cfg.Upload.MaxSize, cfg.Upload.AllowedTypes)

	reg.handler = handler.NewAssetHandler(manager, gw, reg.records, exporter, upload, labels, loc)
	return reg, nil
}

// Close stops the record subscription and releases store connections.
func (r *registry) Close(ctx context.Context) {
	if r.records != nil {
		r.records.Stop()
	}
	r.cancel()
	if r.rdb != nil {
		if err := r.rdb.Close(); err != nil {
			hlog.CtxWarnf(ctx, "close redis: %v", err)
		}
	}
	if err := database.Close(r.db); err != nil {
		hlog.CtxWarnf(ctx, "close database: %v", err)
	}
}
