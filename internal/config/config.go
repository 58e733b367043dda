package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Converter ConverterConfig `mapstructure:"converter"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Motion    MotionConfig    `mapstructure:"motion"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	FrontendOrigin  string        `mapstructure:"frontend_origin"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	MetricsPrefix   string        `mapstructure:"metrics_prefix"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig describes the identity provider tenant.
type AuthConfig struct {
	Domain          string        `mapstructure:"domain"`
	Audience        string        `mapstructure:"audience"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	RolesClaim      string        `mapstructure:"roles_claim"`
	AdminRoleID     string        `mapstructure:"admin_role_id"`
	PhysicianRoleID string        `mapstructure:"physician_role_id"`
	PatientRoleID   string        `mapstructure:"patient_role_id"`
	JWKSCacheTTL    time.Duration `mapstructure:"jwks_cache_ttl"`
}

type StorageConfig struct {
	Region           string        `mapstructure:"region"`
	Endpoint         string        `mapstructure:"endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	Container        string        `mapstructure:"container"`
	UploadContainers []string      `mapstructure:"upload_containers"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
}

type ConverterConfig struct {
	URL            string        `mapstructure:"url"`
	Path           string        `mapstructure:"path"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxFailures    int           `mapstructure:"max_failures"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type MotionConfig struct {
	HeaderLine int `mapstructure:"header_line"`
}

// env lists the process variables the deployment sets directly. They win
// over both defaults and the YAML file.
type env struct {
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	FrontendOrigin  string `envconfig:"FRONTEND_ORIGIN"`
	Port            int    `envconfig:"PORT"`
	AuthDomain      string `envconfig:"AUTH0_DOMAIN"`
	AuthAudience    string `envconfig:"AUTH0_AUDIENCE"`
	AuthClientID    string `envconfig:"AUTH0_CLIENT_ID"`
	AuthSecret      string `envconfig:"AUTH0_CLIENT_SECRET"`
	AdminRoleID     string `envconfig:"AUTH0_ADMIN_ROLE_ID"`
	PhysicianRoleID string `envconfig:"AUTH0_PHYSICIAN_ROLE_ID"`
	PatientRoleID   string `envconfig:"AUTH0_PATIENT_ROLE_ID"`
	StorageEndpoint string `envconfig:"STORAGE_ENDPOINT"`
	StorageKeyID    string `envconfig:"STORAGE_ACCESS_KEY_ID"`
	StorageKey      string `envconfig:"STORAGE_SECRET_ACCESS_KEY"`
	ConverterURL    string `envconfig:"CONVERTER_URL"`
	RedisURL        string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.frontend_origin", "http://localhost:3000")
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.metrics_prefix", "carelink")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.roles_claim", "https://carelink/roles")
	v.SetDefault("auth.jwks_cache_ttl", 10*time.Minute)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.container", "motion-files")
	v.SetDefault("storage.upload_containers", []string{"motion-files", "patient-documents"})
	v.SetDefault("storage.presign_ttl", time.Hour)

	v.SetDefault("converter.path", "/convert")
	v.SetDefault("converter.timeout", 90*time.Second)
	v.SetDefault("converter.max_failures", 5)
	v.SetDefault("converter.breaker_timeout", 30*time.Second)

	v.SetDefault("redis.channel", "carelink:realtime")

	v.SetDefault("motion.header_line", 10)
}

// LoadConfig reads config.yaml (optional) from the working directory or
// ./config, then applies environment overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.applyEnv(e)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(e env) {
	override(&c.Database.URL, e.DatabaseURL)
	override(&c.Server.FrontendOrigin, e.FrontendOrigin)
	if e.Port != 0 {
		c.Server.Port = e.Port
	}
	override(&c.Auth.Domain, e.AuthDomain)
	override(&c.Auth.Audience, e.AuthAudience)
	override(&c.Auth.ClientID, e.AuthClientID)
	override(&c.Auth.ClientSecret, e.AuthSecret)
	override(&c.Auth.AdminRoleID, e.AdminRoleID)
	override(&c.Auth.PhysicianRoleID, e.PhysicianRoleID)
	override(&c.Auth.PatientRoleID, e.PatientRoleID)
	override(&c.Storage.Endpoint, e.StorageEndpoint)
	override(&c.Storage.AccessKeyID, e.StorageKeyID)
	override(&c.Storage.SecretAccessKey, e.StorageKey)
	override(&c.Converter.URL, e.ConverterURL)
	override(&c.Redis.URL, e.RedisURL)
}

func override(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Motion.HeaderLine < 0 {
		return fmt.Errorf("motion header_line must not be negative")
	}
	return nil
}
