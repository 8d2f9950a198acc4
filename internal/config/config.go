package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	Pairing       PairingConfig       `yaml:"pairing"`
	QuickMessages QuickMessagesConfig `yaml:"quick_messages"`
	Slideshow     SlideshowConfig     `yaml:"slideshow"`
	Storage       StorageConfig       `yaml:"storage"`
	Notify        NotifyConfig        `yaml:"notify"`
	Log           LogConfig           `yaml:"log"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME" env-default:"couples"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"24h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
}

// PairingConfig holds pairing code settings
type PairingConfig struct {
	CodeTTLMinutes int           `yaml:"code_ttl_minutes" env:"PAIRING_CODE_TTL_MINUTES" env-default:"10"`
	PurgeInterval  time.Duration `yaml:"purge_interval" env:"PAIRING_PURGE_INTERVAL"`
}

// CodeTTL returns the pairing code lifetime
func (c PairingConfig) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLMinutes) * time.Minute
}

// QuickMessagesConfig holds quick message limits
type QuickMessagesConfig struct {
	MaxPerCouple int `yaml:"max_per_couple" env:"QUICK_MESSAGES_MAX" env-default:"10"`
}

// SlideshowConfig holds slideshow limits
type SlideshowConfig struct {
	MaxImages      int   `yaml:"max_images" env:"SLIDESHOW_MAX_IMAGES" env-default:"20"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"SLIDESHOW_MAX_UPLOAD_BYTES" env-default:"10485760"`
}

// StorageConfig selects where uploaded images are kept
type StorageConfig struct {
	Driver       string   `yaml:"driver" env:"STORAGE_DRIVER" env-default:"local"`
	UploadDir    string   `yaml:"upload_dir" env:"STORAGE_UPLOAD_DIR" env-default:"uploads"`
	PublicPrefix string   `yaml:"public_prefix" env:"STORAGE_PUBLIC_PREFIX" env-default:"/uploads/"`
	S3           S3Config `yaml:"s3"`
}

// S3Config holds S3 configuration
type S3Config struct {
	Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	PublicURL string `yaml:"public_url" env:"S3_PUBLIC_URL"`
	KeyPrefix string `yaml:"key_prefix" env:"S3_KEY_PREFIX" env-default:"slideshow/"`
}

// NotifyConfig holds notification relay settings
type NotifyConfig struct {
	QueueSize int `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE" env-default:"256"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED"`
}

// Load reads configuration from a YAML file, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required")
	case c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0:
		return errors.New("jwt token ttls must be positive")
	case c.Pairing.CodeTTLMinutes <= 0:
		return errors.New("pairing.code_ttl_minutes must be positive")
	case c.Pairing.PurgeInterval < 0:
		return errors.New("pairing.purge_interval must not be negative")
	case c.QuickMessages.MaxPerCouple <= 0:
		return errors.New("quick_messages.max_per_couple must be positive")
	case c.Slideshow.MaxImages <= 0:
		return errors.New("slideshow.max_images must be positive")
	case c.Slideshow.MaxUploadBytes <= 0:
		return errors.New("slideshow.max_upload_bytes must be positive")
	case c.Notify.QueueSize <= 0:
		return errors.New("notify.queue_size must be positive")
	}

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.MaxConns)
}
