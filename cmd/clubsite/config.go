package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/warpclub/clubsite"
	"github.com/warpclub/clubsite/mediastore"
	"github.com/warpclub/clubsite/pgstore"
)

// Config is the club.yaml file. Every key can be overridden by an
// environment variable: database.dsn becomes CLUBSITE_DATABASE_DSN.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	Name        string        `mapstructure:"name"`
	URL         string        `mapstructure:"url"`
	Description string        `mapstructure:"description"`
	Addr        string        `mapstructure:"addr"`
	StaticDir   string        `mapstructure:"static_dir"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`

	SessionSecret string `mapstructure:"session_secret"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`

	Database  DatabaseConfig  `mapstructure:"database"`
	Media     MediaConfig     `mapstructure:"media"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`

	Club clubsite.ClubInfo `mapstructure:"club"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // sqlite or postgres
	Path        string `mapstructure:"path"`
	DSN         string `mapstructure:"dsn"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type MediaConfig struct {
	Driver    string `mapstructure:"driver"` // local or s3
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	PublicURL string `mapstructure:"public_url"`
	PathStyle bool   `mapstructure:"path_style"`
}

type AnalyticsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("name", "WarP Computer Club")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("description", "The computer club of Delhi Public School Mathura Road.")
	v.SetDefault("addr", ":3000")
	v.SetDefault("static_dir", "public")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/club.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("media.driver", "local")
	v.SetDefault("media.endpoint", "")
	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("media.bucket", "")
	v.SetDefault("media.access_key", "")
	v.SetDefault("media.secret_key", "")
	v.SetDefault("media.prefix", "uploads")
	v.SetDefault("media.public_url", "")
	v.SetDefault("media.path_style", false)

	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.path", "data/analytics.db")
	v.SetDefault("analytics.retention_days", 365)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CLUBSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig loads the config file (if any) into v. An explicit path must
// exist; the default club.yaml is optional.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("club")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if !v.IsSet("club") {
		cfg.Club = clubsite.DefaultClubInfo()
	}
	return cfg, nil
}

// SiteConfig maps the file onto the app configuration.
func (c Config) SiteConfig() clubsite.SiteConfig {
	return clubsite.SiteConfig{
		Name:                   c.Name,
		URL:                    c.URL,
		Description:            c.Description,
		Addr:                   c.Addr,
		DatabasePath:           c.Database.Path,
		AnalyticsEnabled:       c.Analytics.Enabled,
		AnalyticsDatabasePath:  c.Analytics.Path,
		AnalyticsRetentionDays: c.Analytics.RetentionDays,
		AdminEmail:             c.AdminEmail,
		AdminPassword:          c.AdminPassword,
		SessionSecret:          c.SessionSecret,
		CookieSecure:           c.CookieSecure,
		ContentCacheTTL:        c.CacheTTL,
	}
}

func (c Config) postgres() pgstore.Config {
	return pgstore.Config{
		DSN:         c.Database.DSN,
		Host:        c.Database.Host,
		Port:        c.Database.Port,
		User:        c.Database.User,
		Password:    c.Database.Password,
		Name:        c.Database.Name,
		SSLMode:     c.Database.SSLMode,
		AutoMigrate: c.Database.AutoMigrate,
	}
}

func (c Config) s3() mediastore.S3Config {
	return mediastore.S3Config{
		Endpoint:  c.Media.Endpoint,
		Region:    c.Media.Region,
		Bucket:    c.Media.Bucket,
		AccessKey: c.Media.AccessKey,
		SecretKey: c.Media.SecretKey,
		Prefix:    c.Media.Prefix,
		PublicURL: c.Media.PublicURL,
		PathStyle: c.Media.PathStyle,
	}
}

// openBackend returns the configured store. A nil backend with no error
// means the app opens its own SQLite store from SiteConfig.DatabasePath.
func openBackend(ctx context.Context, c Config, log zerolog.Logger) (clubsite.Backend, error) {
	switch c.Database.Driver {
	case "", "sqlite":
		return nil, nil
	case "postgres", "supabase":
		return pgstore.Open(ctx, c.postgres(), log)
	default:
		return nil, fmt.Errorf("unknown database driver %q (want sqlite or postgres)", c.Database.Driver)
	}
}

// openStore is openBackend for commands that run without the web app.
func openStore(ctx context.Context, c Config, log zerolog.Logger) (clubsite.Backend, error) {
	b, err := openBackend(ctx, c, log)
	if err != nil || b != nil {
		return b, err
	}
	return clubsite.NewStore(c.Database.Path)
}

func openMedia(ctx context.Context, c Config) (mediastore.Store, error) {
	switch c.Media.Driver {
	case "", "local":
		return nil, nil
	case "s3":
		return mediastore.NewS3(ctx, c.s3())
	default:
		return nil, fmt.Errorf("unknown media driver %q (want local or s3)", c.Media.Driver)
	}
}

func newLogger(env, level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if env == "local" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
