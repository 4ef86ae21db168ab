package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

type Config struct {
	ServerAddr string `mapstructure:"SERVER_ADDR"`
	LogMode    string `mapstructure:"LOG_MODE"`

	// StorageBackend is chosen once at startup, never probed per request.
	StorageBackend   string `mapstructure:"STORAGE_BACKEND"`
	MySQLDSN         string `mapstructure:"MYSQL_DSN"`
	FallbackToMemory bool   `mapstructure:"FALLBACK_TO_MEMORY"`

	// RedisAddr enables the Redis checkout guard; empty keeps the in-process one.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
	SeedDemoData bool          `mapstructure:"SEED_DEMO_DATA"`
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("LOG_MODE", "development")
	viper.SetDefault("STORAGE_BACKEND", BackendMemory)
	viper.SetDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/shop?parseTime=true")
	viper.SetDefault("FALLBACK_TO_MEMORY", true)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("JWT_SECRET", "defaultsecret")
	viper.SetDefault("TOKEN_TTL", time.Hour)
	viper.SetDefault("SEED_DEMO_DATA", false)

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment still applies.
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cf := &Config{}
	if err := viper.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cf.StorageBackend != BackendMySQL && cf.StorageBackend != BackendMemory {
		return nil, fmt.Errorf("unknown storage backend %q", cf.StorageBackend)
	}
	return cf, nil
}
