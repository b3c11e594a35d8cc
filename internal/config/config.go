// Package config loads bruch settings.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. a YAML file (bruch.yaml in the working directory, or --config)
//  3. a .env file
//  4. process environment (BRUCH_DB, LOG_LEVEL, BRUCH_BACKUP_KEEP, ...)
//
// Command-line flags are applied by the CLI afterwards. The merged result
// is checked against an embedded CUE schema before use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bruch/internal/apperr"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "bruch.yaml"

// Environment variables read by Load.
const (
	EnvDatabase       = "BRUCH_DB"
	EnvLogLevel       = "LOG_LEVEL"
	EnvBackupKeep     = "BRUCH_BACKUP_KEEP"
	EnvBackupInterval = "BRUCH_BACKUP_INTERVAL"
	EnvAutoBackup     = "BRUCH_AUTO_BACKUP"
	EnvChunkSize      = "BRUCH_SYNC_CHUNK_SIZE"
)

// Config holds every tunable of the application.
type Config struct {
	Database string        `yaml:"database"`
	LogLevel string        `yaml:"log_level"`
	Backup   BackupConfig  `yaml:"backup"`
	Sync     SyncConfig    `yaml:"sync"`
	Scanner  ScannerConfig `yaml:"scanner"`
}

// BackupConfig tunes retention and the auto-backup scheduler.
type BackupConfig struct {
	Keep     int           `yaml:"keep"`
	Interval time.Duration `yaml:"interval"`
	Debounce time.Duration `yaml:"debounce"`

	// Auto is the initial auto-backup preference. The persisted
	// preference in the database wins once it has been set.
	Auto bool `yaml:"auto"`
}

// SyncConfig tunes QR transfers.
type SyncConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

// ScannerConfig tunes barcode input.
type ScannerConfig struct {
	Window time.Duration `yaml:"window"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: defaultDatabasePath(),
		LogLevel: "info",
		Backup: BackupConfig{
			Keep:     10,
			Interval: 10 * time.Minute,
			Debounce: time.Minute,
			Auto:     true,
		},
		Sync:    SyncConfig{ChunkSize: 2500},
		Scanner: ScannerConfig{Window: 3 * time.Second},
	}
}

func defaultDatabasePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bruch", "bruch.db")
	}
	return "bruch.db"
}

// Sources names where Load reads from.
type Sources struct {
	// File is an explicit YAML path. It must exist when set.
	// When empty, DefaultFile is used if present.
	File string

	// EnvFile is a dotenv file. Missing files are ignored.
	EnvFile string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load merges defaults, the YAML file, the dotenv file and the environment,
// then validates the result.
func Load(src Sources) (Config, error) {
	cfg := Default()

	if err := cfg.readFile(src.File); err != nil {
		return Config{}, err
	}

	lookup, err := envLookup(src)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperr.Validation("load config", "read %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return apperr.Validation("load config", "parse %s: %v", path, err)
	}
	return nil
}

// envLookup layers the dotenv file under the process environment, so real
// environment variables win like with godotenv.Load.
func envLookup(src Sources) (func(string) (string, bool), error) {
	process := src.LookupEnv
	if process == nil {
		process = os.LookupEnv
	}
	if src.EnvFile == "" {
		return process, nil
	}

	dotenv, err := godotenv.Read(src.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return process, nil
		}
		return nil, apperr.Validation("load config", "read %s: %v", src.EnvFile, err)
	}

	return func(key string) (string, bool) {
		if v, ok := process(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvDatabase); ok {
		c.Database = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get(EnvBackupKeep); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validation("load config", "%s=%q is not a number", EnvBackupKeep, v)
		}
		c.Backup.Keep = n
	}
	if v, ok := get(EnvBackupInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperr.Validation("load config", "%s=%q is not a duration", EnvBackupInterval, v)
		}
		c.Backup.Interval = d
	}
	if v, ok := get(EnvAutoBackup); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Validation("load config", "%s=%q is not a boolean", EnvAutoBackup, v)
		}
		c.Backup.Auto = b
	}
	if v, ok := get(EnvChunkSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validation("load config", "%s=%q is not a number", EnvChunkSize, v)
		}
		c.Sync.ChunkSize = n
	}
	return nil
}

// String renders the configuration as YAML.
func (c Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(b)
}
