package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath    string
	AssetsDir string
	SeedFile  string

	// Rotation cache configuration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RotationTTL    time.Duration
	RotationAtomic bool
	CacheTimeout   time.Duration

	// Application configuration
	Port          string
	APIAccessKey  string
	WorkerCount   int
	ReapOnStart   bool
	RetentionDays int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
