// Package config loads server configuration from .env files, an optional YAML
// file, KARTQUIZ_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "KARTQUIZ"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AllowedOrigins lists the origins accepted by CORS and the websocket
	// upgrade. "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// PublicURL is the player-facing base URL encoded in room QR codes.
	PublicURL       string        `mapstructure:"public_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GameConfig holds room session settings.
type GameConfig struct {
	// StrictErrors sends an error event to the requester for every rejected
	// intent. When false only join-error and failed quiz-loaded are sent.
	StrictErrors bool `mapstructure:"strict_errors"`
	// ReplaceRooms lets create-room overwrite an existing room code.
	ReplaceRooms   bool          `mapstructure:"replace_rooms"`
	RoomTTL        time.Duration `mapstructure:"room_ttl"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	RoomCodeLength int           `mapstructure:"room_code_length"`
}

// StorageConfig selects the saved-quiz catalog backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `mapstructure:"driver"`
	// SeedDir, when set, is imported into the catalog at startup.
	SeedDir string `mapstructure:"seed_dir"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants and reports every violation.
// Database settings are only checked when the postgres driver is selected.
func (c Config) Validate() error {
	var errs []string

	validators := []func() error{
		func() error { return validateServer(c.Server) },
		func() error { return validateGame(c.Game) },
		func() error { return validateStorage(c.Storage) },
		func() error { return validateLogging(c.Logging) },
	}
	if c.Storage.Driver == "postgres" {
		validators = append(validators, func() error { return validateDatabase(c.Database) })
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if len(s.AllowedOrigins) == 0 {
		errs = append(errs, "server.allowed_origins must not be empty")
	}
	if s.PublicURL != "" {
		if u, err := url.Parse(s.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("server.public_url must be an absolute URL, got %q", s.PublicURL))
		}
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.RoomTTL < 0 {
		errs = append(errs, "game.room_ttl must not be negative")
	}
	if g.ReapInterval < 0 {
		errs = append(errs, "game.reap_interval must not be negative")
	}
	if g.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("game.send_buffer must be >= 1, got %d", g.SendBuffer))
	}
	if g.RoomCodeLength < 4 || g.RoomCodeLength > 12 {
		errs = append(errs, fmt.Sprintf("game.room_code_length must be 4-12, got %d", g.RoomCodeLength))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case "memory", "postgres":
		return nil
	}
	return fmt.Errorf("storage.driver must be one of [memory, postgres], got %q", s.Driver)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and KARTQUIZ_* environment
// overrides. path may be empty to skip the config file.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// Load reads .env, the optional config file and the environment, then
// validates the result.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a validated Config from an already-configured viper.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"public-url":    "server.public_url",
	"strict-errors": "game.strict_errors",
	"replace-rooms": "game.replace_rooms",
	"room-ttl":      "game.room_ttl",
	"storage":       "storage.driver",
	"seed-dir":      "storage.seed_dir",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

// RegisterFlags adds the flags understood by BindFlags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.String("host", "0.0.0.0", "address to bind to (env: KARTQUIZ_SERVER_HOST)")
	fs.IntP("port", "p", 3000, "port to listen on (env: KARTQUIZ_SERVER_PORT)")
	fs.String("public-url", "", "player-facing base URL for QR codes (env: KARTQUIZ_SERVER_PUBLIC_URL)")
	fs.Bool("strict-errors", true, "send error events for rejected intents (env: KARTQUIZ_GAME_STRICT_ERRORS)")
	fs.Bool("replace-rooms", false, "let create-room overwrite an existing code (env: KARTQUIZ_GAME_REPLACE_ROOMS)")
	fs.Duration("room-ttl", 2*time.Hour, "idle time before a room is removed, 0 disables (env: KARTQUIZ_GAME_ROOM_TTL)")
	fs.String("storage", "memory", "saved-quiz storage: memory or postgres (env: KARTQUIZ_STORAGE_DRIVER)")
	fs.String("seed-dir", "", "directory of quiz files imported at startup (env: KARTQUIZ_STORAGE_SEED_DIR)")
	fs.String("log-level", "info", "debug, info, warn or error (env: KARTQUIZ_LOGGING_LEVEL)")
	fs.String("log-format", "json", "json or console (env: KARTQUIZ_LOGGING_FORMAT)")
}

// BindFlags binds the flags registered by RegisterFlags to v. Flags only
// override the file and environment when set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("binding --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("game.strict_errors", true)
	v.SetDefault("game.replace_rooms", false)
	v.SetDefault("game.room_ttl", "2h")
	v.SetDefault("game.reap_interval", "1m")
	v.SetDefault("game.send_buffer", 64)
	v.SetDefault("game.room_code_length", 6)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.seed_dir", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "kartquiz")
	v.SetDefault("database.password", "kartquiz")
	v.SetDefault("database.name", "kartquiz")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
