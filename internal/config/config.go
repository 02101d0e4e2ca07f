package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/chizuquiz/internal/geo"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/chizuquiz.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	ToleranceKm float64       `env:"TOLERANCE_KM" envDefault:"300"`
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"3s"`
	MoveStep    float64       `env:"MOVE_STEP" envDefault:"1"`
	MinLat      float64       `env:"BOUNDS_MIN_LAT" envDefault:"20"`
	MaxLat      float64       `env:"BOUNDS_MAX_LAT" envDefault:"46"`
	MinLng      float64       `env:"BOUNDS_MIN_LNG" envDefault:"122"`
	MaxLng      float64       `env:"BOUNDS_MAX_LNG" envDefault:"154"`

	RoomIdleTTL time.Duration `env:"ROOM_IDLE_TTL" envDefault:"30m"`
	SeedRegions bool          `env:"SEED_REGIONS" envDefault:"true"`

	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Bounds().Validate(); err != nil {
		return nil, fmt.Errorf("BOUNDS_*: %w", err)
	}
	if cfg.ToleranceKm <= 0 {
		return nil, fmt.Errorf("TOLERANCE_KM must be positive, got %v", cfg.ToleranceKm)
	}
	if cfg.MoveStep <= 0 {
		return nil, fmt.Errorf("MOVE_STEP must be positive, got %v", cfg.MoveStep)
	}
	if cfg.SettleDelay <= 0 {
		return nil, fmt.Errorf("SETTLE_DELAY must be positive, got %v", cfg.SettleDelay)
	}
	if cfg.RoomIdleTTL <= 0 {
		return nil, fmt.Errorf("ROOM_IDLE_TTL must be positive, got %v", cfg.RoomIdleTTL)
	}
	return &cfg, nil
}

func (c Config) Bounds() geo.Bounds {
	return geo.Bounds{MinLat: c.MinLat, MaxLat: c.MaxLat, MinLng: c.MinLng, MaxLng: c.MaxLng}
}
