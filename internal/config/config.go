// Package config provides Viper-based configuration loading for the battle simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/cory-johannsen/warsim/internal/battle"
)

// BattleConfig holds the round loop tuning constants.
type BattleConfig struct {
	FatigueInterval       int `mapstructure:"fatigue_interval"`
	FatiguePercent        int `mapstructure:"fatigue_percent"`
	MaxRounds             int `mapstructure:"max_rounds"`
	MinDamagePercent      int `mapstructure:"min_damage_percent"`
	CritMultiplierPercent int `mapstructure:"crit_multiplier_percent"`
}

// ToBattleConfig converts the section into engine tuning.
func (b BattleConfig) ToBattleConfig() battle.Config {
	return battle.Config{
		FatigueInterval:       b.FatigueInterval,
		FatiguePercent:        b.FatiguePercent,
		MaxRounds:             b.MaxRounds,
		MinDamagePercent:      b.MinDamagePercent,
		CritMultiplierPercent: b.CritMultiplierPercent,
	}
}

// ContentConfig locates unit type and effect definitions.
type ContentConfig struct {
	// Dir holds units.yaml and effects.yaml.
	Dir string `mapstructure:"dir"`
	// ScriptInstructionLimit caps formula effect execution; 0 uses the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// ScenarioConfig controls where scenarios are fetched from.
type ScenarioConfig struct {
	// Dir is the local scenario directory. Used when BaseURL is empty.
	Dir string `mapstructure:"dir"`
	// BaseURL, when set, fetches scenarios as <base_url>/<ref>.json.
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Count is the number of numbered scenarios in the catalog.
	Count int `mapstructure:"count"`
	// DefaultChoice is used when a numbered choice is out of range.
	DefaultChoice int `mapstructure:"default_choice"`
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
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the console output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when set, additionally writes JSON logs to a rotating file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ListenConfig is a host/port pair for a network listener.
type ListenConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Battle   BattleConfig   `mapstructure:"battle"`
	Content  ContentConfig  `mapstructure:"content"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     ListenConfig   `mapstructure:"http"`
	GRPC     ListenConfig   `mapstructure:"grpc"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := c.Battle.ToBattleConfig().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScenario(c.Scenario); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateListen("http", c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateListen("grpc", c.GRPC); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScenario(s ScenarioConfig) error {
	var errs []string
	if s.Dir == "" && s.BaseURL == "" {
		errs = append(errs, "one of scenario.dir or scenario.base_url must be set")
	}
	if s.BaseURL != "" && !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("scenario.base_url must be an http(s) URL, got %q", s.BaseURL))
	}
	if s.Timeout < 0 {
		errs = append(errs, "scenario.timeout must not be negative")
	}
	if s.Count < 1 {
		errs = append(errs, fmt.Sprintf("scenario.count must be >= 1, got %d", s.Count))
	}
	if s.DefaultChoice < 1 || s.DefaultChoice > s.Count {
		errs = append(errs, fmt.Sprintf("scenario.default_choice must be 1-%d, got %d", s.Count, s.DefaultChoice))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
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
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must not be negative")
	}
	return nil
}

func validateListen(section string, l ListenConfig) error {
	if l.Host == "" {
		return fmt.Errorf("%s.host must not be empty", section)
	}
	if l.Port < 1 || l.Port > 65535 {
		return fmt.Errorf("%s.port must be 1-65535, got %d", section, l.Port)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance that has read path with WARSIM_ environment
// overrides and defaults applied.
//
// Postcondition: Returns a Viper with the file read, or a non-nil error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with WARSIM_ prefix
	v.SetEnvPrefix("WARSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
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

// Watch re-reads the configuration whenever the file changes and passes each
// valid result to onChange. Invalid edits are reported through onError and
// otherwise ignored.
//
// Precondition: v must have been created by NewViper; onChange must not be nil.
func Watch(v *viper.Viper, onChange func(Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := LoadFromViper(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	def := battle.DefaultConfig()
	v.SetDefault("battle.fatigue_interval", def.FatigueInterval)
	v.SetDefault("battle.fatigue_percent", def.FatiguePercent)
	v.SetDefault("battle.max_rounds", def.MaxRounds)
	v.SetDefault("battle.min_damage_percent", def.MinDamagePercent)
	v.SetDefault("battle.crit_multiplier_percent", def.CritMultiplierPercent)

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.script_instruction_limit", 0)

	v.SetDefault("scenario.dir", "content/scenarios")
	v.SetDefault("scenario.timeout", "10s")
	v.SetDefault("scenario.count", 10)
	v.SetDefault("scenario.default_choice", 1)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "warsim")
	v.SetDefault("database.password", "warsim")
	v.SetDefault("database.name", "warsim")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
}
