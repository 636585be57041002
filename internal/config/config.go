package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Cache      `yaml:"cache"`
	GeoIP      `yaml:"geoip"`
	Shortener  `yaml:"shortener"`
	Auth       `yaml:"auth"`
	Analytics  `yaml:"analytics"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_SERVER_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"shorturl"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Cache holds the optional Redis cache configuration. When disabled or
// unreachable the service runs with a no-op cache.
type Cache struct {
	Enabled     bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"CACHE_HOST" env-default:"localhost"`
	Port        int           `yaml:"port" env:"CACHE_PORT" env-default:"6379"`
	Password    string        `yaml:"password" env:"CACHE_PASSWORD" env-default:""`
	DB          int           `yaml:"db" env:"CACHE_DB" env-default:"0"`
	Prefix      string        `yaml:"prefix" env:"CACHE_PREFIX" env-default:"shorten:"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"CACHE_DIAL_TIMEOUT" env-default:"5s"`
}

// GeoIP holds the optional ip2region database configuration.
type GeoIP struct {
	Enabled bool   `yaml:"enabled" env:"GEOIP_ENABLED" env-default:"false"`
	Path    string `yaml:"path" env:"GEOIP_PATH" env-default:"assets/ip2region.xdb"`
	Mode    string `yaml:"mode" env:"GEOIP_MODE" env-default:"vector"`
}

// Shortener holds service-specific configuration.
type Shortener struct {
	CodeLength  int    `yaml:"code_length" env:"CODE_LENGTH" env-default:"6"`
	CodeCharset string `yaml:"code_charset" env:"CODE_CHARSET" env-default:"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"`
	BaseURL     string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
}

// Auth holds authentication configuration for the management API.
type Auth struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-default:""`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
	APIKey        string        `yaml:"api_key" env:"AUTH_API_KEY" env-default:""`
	AdminUsername string        `yaml:"admin_username" env:"AUTH_ADMIN_USERNAME" env-default:"admin"`
	AdminPassword string        `yaml:"admin_password" env:"AUTH_ADMIN_PASSWORD" env-default:""`
}

// Analytics holds the access-recording worker pool configuration.
type Analytics struct {
	Workers         int           `yaml:"workers" env:"ANALYTICS_WORKERS" env-default:"3"`
	BufferSize      int           `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE" env-default:"1000"`
	RetryAttempts   int           `yaml:"retry_attempts" env:"ANALYTICS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay      time.Duration `yaml:"retry_delay" env:"ANALYTICS_RETRY_DELAY" env-default:"1s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ANALYTICS_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	// Check if config file path is specified
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	// Try to load config file
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	return &cfg
}

// Validate enforces the configuration invariants the services rely on.
func (c *Config) Validate() error {
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 16 {
		return fmt.Errorf("shortener.code_length must be between 4 and 16, got %d", c.Shortener.CodeLength)
	}
	if c.Shortener.CodeCharset == "" {
		return fmt.Errorf("shortener.code_charset must not be empty")
	}
	if seen := duplicateChar(c.Shortener.CodeCharset); seen != 0 {
		return fmt.Errorf("shortener.code_charset contains duplicate character %q", seen)
	}
	if c.Analytics.Workers < 1 {
		return fmt.Errorf("analytics.workers must be positive, got %d", c.Analytics.Workers)
	}
	if c.Analytics.BufferSize < 1 {
		return fmt.Errorf("analytics.buffer_size must be positive, got %d", c.Analytics.BufferSize)
	}
	return nil
}

func duplicateChar(s string) rune {
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		if seen[r] {
			return r
		}
		seen[r] = true
	}
	return 0
}
