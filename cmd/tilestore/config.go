package main

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		Logger  Logger  `envPrefix:"LOGGER_"`
		Store   Store   `envPrefix:"STORE_"`
		Stress  Stress  `envPrefix:"STRESS_"`
		Metrics Metrics `envPrefix:"METRICS_"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Store struct {
		Shards           int `env:"SHARDS" envDefault:"64"`
		TileSize         int `env:"TILE_SIZE" envDefault:"4096"`
		ReclaimHighWater int `env:"RECLAIM_HIGH_WATER" envDefault:"4096"`
	}

	Stress struct {
		Duration time.Duration `env:"DURATION" envDefault:"10s"`
		Workers  int           `env:"WORKERS" envDefault:"8"`
		Window   int           `env:"WINDOW" envDefault:"64"`
	}

	Metrics struct {
		Addr string `env:"ADDR"`
	}
)

// LoadConfig reads TILESTORE_* variables, from .env first when present.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "TILESTORE_"})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
