package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	DBDriver string // sqlite | postgres
	DBDSN    string
	LogFile  string
	SeedDemo bool
	Index    IndexConfig
}

// IndexConfig selects and tunes the search index backend.
type IndexConfig struct {
	Backend         string // memory | elasticsearch | redis
	ESAddresses     []string
	ESIndex         string
	ESUsername      string
	ESPassword      string
	RedisAddr       string
	RedisPrefix     string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	ResyncWorkers   int
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "backoffice.db") // sqlite file in project root
	v.SetDefault("LOG_FILE", "./backoffice.log")
	v.SetDefault("SEED_DEMO", true)
	v.SetDefault("INDEX_BACKEND", "memory")
	v.SetDefault("ES_ADDRESSES", "http://localhost:9200")
	v.SetDefault("ES_INDEX", "products")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "backoffice:")
	v.SetDefault("INDEX_TIMEOUT", "3s")
	v.SetDefault("BREAKER_FAILURES", 5)
	v.SetDefault("BREAKER_COOLDOWN", "30s")
	v.SetDefault("RESYNC_WORKERS", 4)
}

// Load reads the environment (and CONFIG_FILE when set) into a Config.
func Load() Config {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	if f := v.GetString("CONFIG_FILE"); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("[warn] could not read config file %s: %v", f, err)
		}
	}
	cfg := FromViper(v)
	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s INDEX_BACKEND=%s",
		cfg.Port, cfg.DBDriver, cfg.DBDSN, cfg.LogFile, cfg.Index.Backend)
	return cfg
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	defaults(v)
	var addrs []string
	for _, a := range strings.Split(v.GetString("ES_ADDRESSES"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	workers := v.GetInt("RESYNC_WORKERS")
	if workers < 1 {
		workers = 1
	}
	return Config{
		Port:     v.GetString("PORT"),
		DBDriver: strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:    v.GetString("DB_DSN"),
		LogFile:  v.GetString("LOG_FILE"),
		SeedDemo: v.GetBool("SEED_DEMO"),
		Index: IndexConfig{
			Backend:         strings.ToLower(v.GetString("INDEX_BACKEND")),
			ESAddresses:     addrs,
			ESIndex:         v.GetString("ES_INDEX"),
			ESUsername:      v.GetString("ES_USERNAME"),
			ESPassword:      v.GetString("ES_PASSWORD"),
			RedisAddr:       v.GetString("REDIS_ADDR"),
			RedisPrefix:     v.GetString("REDIS_PREFIX"),
			Timeout:         v.GetDuration("INDEX_TIMEOUT"),
			BreakerFailures: v.GetUint32("BREAKER_FAILURES"),
			BreakerCooldown: v.GetDuration("BREAKER_COOLDOWN"),
			ResyncWorkers:   workers,
		},
	}
}
