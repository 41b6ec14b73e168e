package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/yi-nology/park_registry/biz/dal/gateway"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/biz/service/lifecycle"
	"github.com/yi-nology/park_registry/pkg/config"
	"github.com/yi-nology/park_registry/pkg/database"
	"github.com/yi-nology/park_registry/pkg/idempotency"
	"github.com/yi-nology/park_registry/pkg/mapref"
	pkgredis "github.com/yi-nology/park_registry/pkg/redis"
	"github.com/yi-nology/park_registry/pkg/storage"
	"github.com/yi-nology/park_registry/pkg/validator"
)

// Imports the browser-only registry export (the "parkAssets" JSON array)
// into the record and photo stores.
// Usage: go run script/import_legacy.go -file parkAssets.json [-dry-run]

var (
	configPath = flag.String("config", "config.yaml", "registry config file")
	inputPath  = flag.String("file", "", "legacy JSON export")
	dryRun     = flag.Bool("dry-run", false, "validate without writing")
)

// legacyAsset is one entry of the legacy export.
type legacyAsset struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	RegistrationDate string   `json:"registrationDate"`
	Photo            string   `json:"photo"`
	MapView          string   `json:"mapView"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Condition        string   `json:"condition"`
	Description      string   `json:"description"`
}

var legacyCategories = map[string]string{
	"벤치":   "bench",
	"가로등":  "lamp",
	"분수대":  "fountain",
	"운동기구": "exercise-equipment",
	"안내판":  "signage",
}

var legacyConditions = asset.Labels{"good": "좋음", "fair": "보통", "poor": "나쁨"}

func main() {
	flag.Parse()
	if *inputPath == "" {
		log.Fatal("-file is required")
	}

	log.Println("========== Legacy asset import ==========")
	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("open %s: %v", *inputPath, err)
	}
	defer f.Close()

	entries, err := parseLegacy(f)
	if err != nil {
		log.Fatalf("parse export: %v", err)
	}
	log.Printf("found %d legacy assets", len(entries))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	policy := validator.NewUploadConfig(cfg.Upload.MaxSize, cfg.Upload.AllowedTypes)

	ctx := context.Background()
	var manager *lifecycle.Manager
	if !*dryRun {
		db, err := database.Open(cfg.Database)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer func() { _ = database.Close(db) }()
		store, err := storage.New(cfg.Storage)
		if err != nil {
			log.Fatalf("init storage: %v", err)
		}
		rdb, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("init redis: %v", err)
		}

		// Legacy ids are kept beside the records, so re-running the import
		// after a partial failure skips what already landed.
		tokens, err := idempotency.NewGormStore(db, 0)
		if err != nil {
			log.Fatalf("init token store: %v", err)
		}
		var gwOpts []gateway.Option
		if rdb != nil {
			defer func() { _ = rdb.Close() }()
			// Running registry processes refresh their record sets.
			gwOpts = append(gwOpts, gateway.WithNotifier(pkgredis.NewFeed(rdb, cfg.Redis.Channel, "import-legacy")))
		}
		manager = newImportManager(gateway.New(db, store, gwOpts...), cfg, tokens)
	}

	imported, skipped := importEntries(ctx, manager, entries, policy, cfg.Registry.Location())
	log.Printf("imported %d, skipped %d", imported, skipped)
}

func newImportManager(gw *gateway.Gateway, cfg *config.Config, tokens idempotency.Store) *lifecycle.Manager {
	return lifecycle.NewManager(gw, mapref.NewBuilder(cfg.Map),
		lifecycle.Rules{Categories: cfg.Registry.Categories},
		lifecycle.WithTokens(tokens))
}

// importEntries submits every convertible entry. A nil manager validates only.
func importEntries(ctx context.Context, manager *lifecycle.Manager, entries []legacyAsset,
	policy *validator.UploadConfig, loc *time.Location) (imported, skipped int) {
	for i, entry := range entries {
		d, err := entry.draft(policy, loc)
		if err != nil {
			log.Printf("[%d/%d] skip %s (%s): %v", i+1, len(entries), entry.ID, entry.Name, err)
			skipped++
			continue
		}
		if manager == nil {
			log.Printf("[%d/%d] ok %s (%s)", i+1, len(entries), entry.ID, entry.Name)
			imported++
			continue
		}
		created, err := manager.SubmitCreate(ctx, d)
		if err != nil {
			log.Printf("[%d/%d] failed %s (%s): %v", i+1, len(entries), entry.ID, entry.Name, err)
			skipped++
			continue
		}
		log.Printf("[%d/%d] imported %s as %s", i+1, len(entries), entry.ID, created.ID)
		imported++
	}
	return imported, skipped
}

func parseLegacy(r io.Reader) ([]legacyAsset, error) {
	var entries []legacyAsset
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// draft converts a legacy entry. Entries without a photo or a position
// cannot satisfy registration rules and are rejected.
func (l legacyAsset) draft(policy *validator.UploadConfig, loc *time.Location) (asset.Draft, error) {
	if l.Latitude == nil || l.Longitude == nil {
		return asset.Draft{}, errors.New("no coordinates")
	}
	image, err := decodeDataURL(l.Photo)
	if err != nil {
		return asset.Draft{}, fmt.Errorf("photo: %w", err)
	}
	mime, err := policy.Validate(image)
	if err != nil {
		return asset.Draft{}, fmt.Errorf("photo: %w", err)
	}

	category := strings.TrimSpace(l.Type)
	if mapped, ok := legacyCategories[category]; ok {
		category = mapped
	}
	condition, ok := legacyConditions.Parse(l.Condition)
	if !ok {
		return asset.Draft{}, fmt.Errorf("unknown condition %q", l.Condition)
	}

	d := asset.Draft{
		Name:        l.Name,
		Category:    category,
		Condition:   condition,
		Description: l.Description,
		Capture: &asset.CaptureResult{
			Image:    image,
			MimeType: mime,
			Location: asset.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude},
		},
		SubmissionToken: l.ID,
	}
	if l.RegistrationDate != "" {
		t, err := time.Parse(time.RFC3339, l.RegistrationDate)
		if err != nil {
			return asset.Draft{}, fmt.Errorf("registration date: %w", err)
		}
		t = t.In(loc)
		d.RecordedAt = &t
	}
	return d, nil
}

// decodeDataURL extracts the payload of a base64 "data:" URL.
func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data URL is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload)
}
