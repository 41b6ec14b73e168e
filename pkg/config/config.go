package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures service level configuration loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	CORS     CORSConfig     `yaml:"cors"`
	Upload   UploadConfig   `yaml:"upload"`
	Redis    RedisConfig    `yaml:"redis"`
	Registry RegistryConfig `yaml:"registry"`
	Map      MapConfig      `yaml:"map"`
	Report   ReportConfig   `yaml:"report"`
}

// RedisConfig defines Redis connection settings used for the write lock,
// the cross-process change feed and submission tokens.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Channel carries "assets changed" notifications between registry instances.
	Channel string `yaml:"channel"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// UploadConfig defines photo upload constraints.
type UploadConfig struct {
	MaxSize      int64    `yaml:"max_size"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// DatabaseConfig defines the database backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig selects the photo blob backend.
type StorageConfig struct {
	Type  string      `yaml:"type"`
	Local LocalConfig `yaml:"local"`
	S3    S3Config    `yaml:"s3"`
}

// LocalConfig holds local storage configuration.
type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
	URLMode   string `yaml:"url_mode"`
}

// RegistryConfig holds the asset registry business settings.
type RegistryConfig struct {
	// Timezone used to normalise date filter bounds. Empty means the host zone.
	Timezone   string   `yaml:"timezone"`
	Categories []string `yaml:"categories"`
	// ConditionLabels maps the level keys good/fair/poor to display labels.
	ConditionLabels map[string]string `yaml:"condition_labels"`
	// ReclaimReplacedPhotos deletes the previous photo blob when an update
	// replaces it. Off by default.
	ReclaimReplacedPhotos bool `yaml:"reclaim_replaced_photos"`
	// SubmissionTokenTTL bounds how long a submission token is remembered.
	SubmissionTokenTTL time.Duration `yaml:"submission_token_ttl"`
}

// MapConfig describes the static map rendering service.
type MapConfig struct {
	BaseURL string `yaml:"base_url"`
	Zoom    int    `yaml:"zoom"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// ReportConfig controls CSV/PDF export.
type ReportConfig struct {
	Title string `yaml:"title"`
	// FontPath points at a TTF font covering the data's character set.
	FontPath string `yaml:"font_path"`
	// Layout is "table" or "cards".
	Layout string `yaml:"layout"`
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the binary executable.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		return cfg, nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	return &parsed, nil
}

// DefaultCategories lists the facility kinds offered when none are configured.
var DefaultCategories = []string{"bench", "lamp", "fountain", "exercise-equipment", "signage"}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/registry.db"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Local.BasePath == "" {
		cfg.Storage.Local.BasePath = "data/photos"
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Storage.S3.URLMode == "" {
		cfg.Storage.S3.URLMode = "presigned"
	}
	if cfg.CORS.AllowOrigin == "" {
		cfg.CORS.AllowOrigin = "*"
	}
	if cfg.CORS.AllowMethods == "" {
		cfg.CORS.AllowMethods = "GET,POST,PUT,DELETE,OPTIONS"
	}
	if cfg.CORS.AllowHeaders == "" {
		cfg.CORS.AllowHeaders = "Content-Type,X-User-Id"
	}
	if cfg.Upload.MaxSize <= 0 {
		cfg.Upload.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = []string{
			"image/jpeg",
			"image/png",
			"image/webp",
			"image/gif",
		}
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "park_registry:assets"
	}
	if len(cfg.Registry.Categories) == 0 {
		cfg.Registry.Categories = append([]string(nil), DefaultCategories...)
	}
	if cfg.Registry.SubmissionTokenTTL <= 0 {
		cfg.Registry.SubmissionTokenTTL = 24 * time.Hour
	}
	if cfg.Map.BaseURL == "" {
		cfg.Map.BaseURL = "https://staticmap.openstreetmap.de/staticmap.php"
	}
	if cfg.Map.Zoom <= 0 {
		cfg.Map.Zoom = 17
	}
	if cfg.Map.Width <= 0 {
		cfg.Map.Width = 400
	}
	if cfg.Map.Height <= 0 {
		cfg.Map.Height = 300
	}
	if cfg.Report.Title == "" {
		cfg.Report.Title = "Park Asset Report"
	}
	if cfg.Report.Layout == "" {
		cfg.Report.Layout = "table"
	}
}

// Location resolves the registry timezone. An empty or unknown zone falls
// back to time.Local.
func (r RegistryConfig) Location() *time.Location {
	name := strings.TrimSpace(r.Timezone)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, using local time", name)
		return time.Local
	}
	return loc
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
