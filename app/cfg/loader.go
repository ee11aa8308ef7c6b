package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/ads.db" description:"Path to the sqlite database file"`
	AssetsDir string `long:"assets-dir" env:"ASSETS_DIR" default:"./data/assets" description:"Directory for uploaded ad creatives"`
	SeedFile  string `long:"seed-file" env:"SEED_FILE" description:"YAML file or directory of ads and posts loaded into an empty database"`

	// Rotation cache configuration
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the rotation cache (empty disables caching)"`
	RedisPassword  string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB        int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	RotationTTL    int    `long:"rotation-ttl" env:"ROTATION_TTL" default:"600" description:"Rotation snapshot lifetime in seconds"`
	RotationAtomic bool   `long:"rotation-atomic" env:"ROTATION_ATOMIC" description:"Advance rotation cursors with an atomic Redis increment"`
	CacheTimeoutMs int    `long:"cache-timeout-ms" env:"CACHE_TIMEOUT_MS" default:"200" description:"Per-operation rotation cache timeout in milliseconds"`

	// Application configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for mutating endpoints (optional)"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for reaper tasks"`
	ReapOnStart   bool   `long:"reap-on-start" env:"REAP_ON_START" description:"Run the expiry and purge tasks once at startup"`
	RetentionDays int    `long:"retention-days" env:"RETENTION_DAYS" default:"3" description:"Days an expired ad is kept before purge"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps and the daily reaper (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		AssetsDir:      raw.AssetsDir,
		SeedFile:       raw.SeedFile,
		RedisAddr:      raw.RedisAddr,
		RedisPassword:  raw.RedisPassword,
		RedisDB:        raw.RedisDB,
		RotationTTL:    time.Duration(raw.RotationTTL) * time.Second,
		RotationAtomic: raw.RotationAtomic,
		CacheTimeout:   time.Duration(raw.CacheTimeoutMs) * time.Millisecond,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		WorkerCount:    raw.WorkerCount,
		ReapOnStart:    raw.ReapOnStart,
		RetentionDays:  raw.RetentionDays,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	if raw.RotationTTL <= 0 {
		return fmt.Errorf("rotation TTL must be positive, got %d", raw.RotationTTL)
	}
	if raw.CacheTimeoutMs <= 0 {
		return fmt.Errorf("cache timeout must be positive, got %d", raw.CacheTimeoutMs)
	}
	if raw.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.RetentionDays < 0 {
		return fmt.Errorf("retention days must be non-negative, got %d", raw.RetentionDays)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
