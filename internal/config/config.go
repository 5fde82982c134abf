package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/aqasim81/schemagate/internal/database"
)

// Default values for configuration fields.
const (
	DefaultDriver        = database.DriverPgx
	DefaultMaxConns      = 5
	DefaultMigrationFile = "migrations.xml"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// EnvPrefix prefixes every environment override, e.g. SCHEMAGATE_DB_URL.
const EnvPrefix = "SCHEMAGATE"

// Config is the validated configuration of one schemagate process. It is a
// value: derive variants with the With* methods instead of mutating it.
type Config struct {
	DB         DB
	Migrations Migrations
	Log        Log
}

// DB describes the target database.
type DB struct {
	Driver           database.Driver
	URL              string
	User             string
	Password         string
	MaxConns         int
	AutoCommit       bool
	StatementTimeout time.Duration
	LockTimeout      time.Duration
	AdvisoryLock     bool
}

// Migrations selects the changelog and how it is applied.
type Migrations struct {
	MigrationFile string
	Contexts      string
	AutoMigrate   bool
}

// Log configures the process logger.
type Log struct {
	Level  logrus.Level
	Format string
}

// rawConfig mirrors the YAML document; viper decodes into it.
type rawConfig struct {
	DB struct {
		Driver           string        `mapstructure:"driver"`
		URL              string        `mapstructure:"url"`
		User             string        `mapstructure:"user"`
		Password         string        `mapstructure:"password"`
		MaxConns         int           `mapstructure:"max_conns"`
		AutoCommit       bool          `mapstructure:"auto_commit"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout"`
		LockTimeout      time.Duration `mapstructure:"lock_timeout"`
		AdvisoryLock     bool          `mapstructure:"advisory_lock"`
	} `mapstructure:"db"`
	Migrations struct {
		MigrationFile string `mapstructure:"migration_file"`
		Contexts      string `mapstructure:"contexts"`
		AutoMigrate   bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"migrations"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Load reads the YAML configuration at ref, falling back to resources when
// ref does not exist on disk, applies SCHEMAGATE_* environment overrides and
// validates the result.
func Load(ref string, resources fs.FS) (Config, error) {
	data, err := read(ref, resources)
	if err != nil {
		return Config{}, err
	}

	v := newViper()

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, ref, err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("%w: decoding %s: %w", ErrInvalidConfig, ref, err)
	}

	return fromRaw(&raw)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can override it during Unmarshal.
	v.SetDefault("db.driver", string(DefaultDriver))
	v.SetDefault("db.url", "")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_conns", DefaultMaxConns)
	v.SetDefault("db.auto_commit", false)
	v.SetDefault("db.statement_timeout", time.Duration(0))
	v.SetDefault("db.lock_timeout", time.Duration(0))
	v.SetDefault("db.advisory_lock", false)
	v.SetDefault("migrations.migration_file", DefaultMigrationFile)
	v.SetDefault("migrations.contexts", "")
	v.SetDefault("migrations.auto_migrate", false)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	return v
}

// read returns the document at ref from disk or, failing that, from resources.
func read(ref string, resources fs.FS) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err == nil {
		return data, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config file %s: %w", ref, err)
	}

	if resources != nil {
		name := path.Clean(strings.TrimPrefix(filepath.ToSlash(ref), "/"))
		if data, rerr := fs.ReadFile(resources, name); rerr == nil {
			return data, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, ref)
}

func fromRaw(raw *rawConfig) (Config, error) {
	driver, err := database.ParseDriver(raw.DB.Driver)
	if err != nil {
		return Config{}, fmt.Errorf("%w: db.driver: %w", ErrInvalidConfig, err)
	}

	level, err := logrus.ParseLevel(raw.Log.Level)
	if err != nil {
		return Config{}, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}

	cfg := Config{
		DB: DB{
			Driver:           driver,
			URL:              strings.TrimSpace(raw.DB.URL),
			User:             raw.DB.User,
			Password:         raw.DB.Password,
			MaxConns:         raw.DB.MaxConns,
			AutoCommit:       raw.DB.AutoCommit,
			StatementTimeout: raw.DB.StatementTimeout,
			LockTimeout:      raw.DB.LockTimeout,
			AdvisoryLock:     raw.DB.AdvisoryLock,
		},
		Migrations: Migrations{
			MigrationFile: strings.TrimSpace(raw.Migrations.MigrationFile),
			Contexts:      raw.Migrations.Contexts,
			AutoMigrate:   raw.Migrations.AutoMigrate,
		},
		Log: Log{
			Level:  level,
			Format: strings.ToLower(raw.Log.Format),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first field that makes c unusable.
func (c Config) Validate() error {
	switch {
	case c.DB.URL == "":
		return fmt.Errorf("%w: db.url is required", ErrInvalidConfig)
	case c.DB.MaxConns <= 0:
		return fmt.Errorf("%w: db.max_conns must be positive, got %d", ErrInvalidConfig, c.DB.MaxConns)
	case c.DB.StatementTimeout < 0 || c.DB.LockTimeout < 0:
		return fmt.Errorf("%w: db timeouts must not be negative", ErrInvalidConfig)
	case c.DB.AdvisoryLock && c.DB.Driver != database.DriverPgx:
		return fmt.Errorf("%w: db.advisory_lock requires the pgx driver", ErrInvalidConfig)
	case c.Migrations.MigrationFile == "":
		return fmt.Errorf("%w: migrations.migration_file is required", ErrInvalidConfig)
	case c.Log.Format != "text" && c.Log.Format != "json":
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// WithCredentials returns a copy of c connecting as user with password.
func (c Config) WithCredentials(user, password string) Config {
	c.DB.User = user
	c.DB.Password = password

	return c
}

// Options maps the db section onto connection options.
func (d DB) Options() database.Options {
	return database.Options{
		Driver:           d.Driver,
		URL:              d.URL,
		User:             d.User,
		Password:         d.Password,
		MaxConns:         d.MaxConns,
		AutoCommit:       d.AutoCommit,
		StatementTimeout: d.StatementTimeout,
		LockTimeout:      d.LockTimeout,
	}
}

// String renders the db section for logs with the password hidden.
func (d DB) String() string {
	return fmt.Sprintf("%s %s (user=%q, autocommit=%t)", d.Driver, RedactURL(d.URL), d.User, d.AutoCommit)
}
