package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds route cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RoutingConfig holds route provider settings.
type RoutingConfig struct {
	OSRMURL     string
	OSRMTimeout time.Duration
}

// SimulatorConfig holds simulated guidance settings.
type SimulatorConfig struct {
	Tick     time.Duration
	SpeedMps float64
}

// ServiceConfig holds all configuration for the navigation service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	AwaitSurface    bool
	DBConfig        DatabaseConfig
	KafkaConfig     KafkaConfig
	RedisConfig     RedisConfig
	RoutingConfig   RoutingConfig
	SimulatorConfig SimulatorConfig
}

// Load reads configuration from environment variables prefixed with NAVIGATION_.
func Load() (*ServiceConfig, error) {
	v := newViper("NAVIGATION")

	cfg := &ServiceConfig{
		Port:         servicePort(v.GetString("SERVICE_PORT")),
		AppEnv:       v.GetString("APP_ENV"),
		AwaitSurface: v.GetBool("AWAIT_SURFACE"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("ROUTE_CACHE_TTL"),
		},
		RoutingConfig: RoutingConfig{
			OSRMURL:     strings.TrimRight(v.GetString("OSRM_URL"), "/"),
			OSRMTimeout: v.GetDuration("OSRM_TIMEOUT"),
		},
		SimulatorConfig: SimulatorConfig{
			Tick:     v.GetDuration("SIMULATOR_TICK"),
			SpeedMps: v.GetFloat64("SIMULATOR_SPEED_MPS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8086")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AWAIT_SURFACE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "navigation_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "kilat-")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ROUTE_CACHE_TTL", 10*time.Minute)
	v.SetDefault("OSRM_URL", "http://router.project-osrm.org")
	v.SetDefault("OSRM_TIMEOUT", 10*time.Second)
	v.SetDefault("SIMULATOR_TICK", time.Second)
	v.SetDefault("SIMULATOR_SPEED_MPS", 13.9)
	return v
}

func (c *ServiceConfig) validate() error {
	if c.RoutingConfig.OSRMURL == "" {
		return fmt.Errorf("OSRM_URL is required")
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.SimulatorConfig.Tick <= 0 {
		return fmt.Errorf("SIMULATOR_TICK must be positive, got %s", c.SimulatorConfig.Tick)
	}
	if c.SimulatorConfig.SpeedMps <= 0 {
		return fmt.Errorf("SIMULATOR_SPEED_MPS must be positive, got %v", c.SimulatorConfig.SpeedMps)
	}
	return nil
}

func servicePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
