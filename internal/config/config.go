// Package config loads kvrecord settings from a YAML file, KVRECORD_*
// environment variables and command-line flags.
//
// Precedence follows viper: flags, then environment, then the config file,
// then defaults. Loaded settings are checked against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/roach88/kvrecord/internal/engine"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes environment variables, e.g. KVRECORD_BACKEND.
const EnvPrefix = "KVRECORD"

// Backends.
const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

// Id strategies.
const (
	IDStrategyGUID = "guid"
	IDStrategyUUID = "uuid"
)

// Config holds the resolved settings.
type Config struct {
	// Backend selects the substrate: memory, sqlite or leveldb.
	Backend string `json:"backend"`

	// Path is the database file (sqlite) or directory (leveldb).
	Path string `json:"path"`

	// QuotaBytes caps substrate usage. Zero disables the quota.
	QuotaBytes int64 `json:"quota_bytes"`

	// IDStrategy selects the generator for records created without an id.
	IDStrategy string `json:"id_strategy"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendMemory)
	v.SetDefault("path", "")
	v.SetDefault("quota_bytes", 0)
	v.SetDefault("id_strategy", IDStrategyGUID)
	v.SetDefault("log_level", "info")
}

// Load reads settings into v and returns the validated Config. file may be
// empty, in which case only defaults, environment and bound flags apply.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		Path:       strings.TrimSpace(v.GetString("path")),
		QuotaBytes: v.GetInt64("quota_bytes"),
		IDStrategy: strings.ToLower(strings.TrimSpace(v.GetString("id_strategy"))),
		LogLevel:   strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrPathRequired is returned when a durable backend has no path.
var ErrPathRequired = errors.New("path is required for durable backends")

// Validate checks cfg against the schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.Encode(map[string]any{
		"backend":     c.Backend,
		"path":        c.Path,
		"quota_bytes": c.QuotaBytes,
		"id_strategy": c.IDStrategy,
		"log_level":   c.LogLevel,
	})
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}

	if c.Backend != BackendMemory && c.Path == "" {
		return fmt.Errorf("invalid config: backend %s: %w", c.Backend, ErrPathRequired)
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IDGenerator returns the generator selected by IDStrategy.
func (c *Config) IDGenerator() engine.IDGenerator {
	if c.IDStrategy == IDStrategyUUID {
		return engine.UUIDv7Generator{}
	}
	return engine.NewGUIDGenerator(nil)
}
