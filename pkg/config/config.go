package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Samples   Samples   `envPrefix:"SAMPLES_"`
		Neo4j     Neo4j     `envPrefix:"NEO4J_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT,required" validate:"required,numeric"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL,required"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"nahlund-tileserver"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	// Cache sizes are entry counts.
	Cache struct {
		MemoryMaxSize   int    `env:"MEMORY_MAX_SIZE" envDefault:"1024" validate:"gt=0"`
		DiskMaxSize     int    `env:"DISK_MAX_SIZE" envDefault:"65536" validate:"gt=0"`
		DiskBasePath    string `env:"DISK_BASE_PATH" envDefault:"/var/nahlund/server/cache" validate:"required"`
		DiskCompression bool   `env:"DISK_COMPRESSION" envDefault:"false"`
	}

	Samples struct {
		Backend       string `env:"BACKEND" envDefault:"sqlite" validate:"oneof=sqlite neo4j"`
		SQLitePath    string `env:"SQLITE_PATH" envDefault:"samples.db"`
		ContextLevels int    `env:"CONTEXT_LEVELS" envDefault:"0" validate:"gte=0,lte=8"`
	}

	Neo4j struct {
		URI      string `env:"URI" envDefault:"neo4j://localhost:7687"`
		User     string `env:"USER" envDefault:"neo4j"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       string `env:"DB" envDefault:"neo4j"`
	}

	Redis struct {
		Enabled  bool   `env:"ENABLED" envDefault:"false"`
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       int    `env:"DB" envDefault:"0"`
		Channel  string `env:"CHANNEL" envDefault:"sensor_data"`
	}

	Upstream struct {
		DEMURL       string        `env:"DEM_URL" envDefault:"https://tiles.gsj.jp/tiles/elev/land/{z}/{y}/{x}.png"`
		PhotoURL     string        `env:"PHOTO_URL" envDefault:"https://cyberjapandata.gsi.go.jp/xyz/seamlessphoto/{z}/{x}/{y}.jpg"`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
		LandGridSize int           `env:"LAND_GRID_SIZE" envDefault:"32" validate:"gte=1,lte=256"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
