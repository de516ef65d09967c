// Package config provides a reusable loader for the AAA state engine's
// configuration files and environment variables. It is versioned so
// that applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"synnergy-aaa/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for one AAA state-engine
// instance. It is the shape Load expects of the default.yaml and
// per-environment YAML files it looks for under cmd/config or config.
type Config struct {
	StateEngine struct {
		MaxSessions    uint32        `mapstructure:"max_sessions" json:"max_sessions" yaml:"max_sessions"`
		Timeout        time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
		ServerID       uint8         `mapstructure:"server_id" json:"server_id" yaml:"server_id"`
		ContextID      uint32        `mapstructure:"context_id" json:"context_id" yaml:"context_id"`
		ThreadSafe     bool          `mapstructure:"thread_safe" json:"thread_safe" yaml:"thread_safe"`
		StateAttribute string        `mapstructure:"state_attribute" json:"state_attribute" yaml:"state_attribute"`
	} `mapstructure:"state_engine" json:"state_engine" yaml:"state_engine"`

	HTTP struct {
		AdminAddr  string `mapstructure:"admin_addr" json:"admin_addr" yaml:"admin_addr"`
		HealthAddr string `mapstructure:"health_addr" json:"health_addr" yaml:"health_addr"`
	} `mapstructure:"http" json:"http" yaml:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level" yaml:"level"`
		File  string `mapstructure:"file" json:"file" yaml:"file"`
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Default returns a Config populated with sane standalone defaults, for
// callers (tests, the CLI) that don't want to read a file at all.
func Default() Config {
	var c Config
	c.StateEngine.MaxSessions = 4096
	c.StateEngine.Timeout = 30 * time.Second
	c.StateEngine.ServerID = 0
	c.StateEngine.ContextID = 0
	c.StateEngine.ThreadSafe = true
	c.StateEngine.StateAttribute = "State"
	c.HTTP.AdminAddr = ":8080"
	c.HTTP.HealthAddr = ":8081"
	c.Logging.Level = "info"
	return c
}

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadYAMLFile reads a standalone YAML config file, bypassing viper,
// for callers that just want one explicit file decoded (e.g. a
// devnet-style fixture checked in alongside a test or demo), the way
// cmd/cli/devnet.go decodes a testnet topology file directly with
// yaml.Unmarshal instead of through the viper search path.
func LoadYAMLFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.Wrap(err, "read config file")
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, utils.Wrap(err, "parse config file")
	}
	return &c, nil
}

// LoadFromEnv overlays environment-variable overrides onto the
// in-memory default configuration, without touching the filesystem.
// Used by cmd/aaactl and cmd/aaaserver for zero-config local runs.
func LoadFromEnv() *Config {
	c := Default()

	c.StateEngine.MaxSessions = uint32(utils.EnvOrDefaultInt("AAA_MAX_SESSIONS", int(c.StateEngine.MaxSessions)))
	c.StateEngine.ServerID = uint8(utils.EnvOrDefaultInt("AAA_SERVER_ID", int(c.StateEngine.ServerID)))
	c.StateEngine.ContextID = uint32(utils.EnvOrDefaultUint64("AAA_CONTEXT_ID", uint64(c.StateEngine.ContextID)))
	c.StateEngine.StateAttribute = utils.EnvOrDefault("AAA_STATE_ATTR", c.StateEngine.StateAttribute)

	if secs := utils.EnvOrDefaultInt("AAA_TIMEOUT_SECONDS", int(c.StateEngine.Timeout/time.Second)); secs > 0 {
		c.StateEngine.Timeout = time.Duration(secs) * time.Second
	}

	c.HTTP.AdminAddr = utils.EnvOrDefault("AAA_ADMIN_ADDR", c.HTTP.AdminAddr)
	c.HTTP.HealthAddr = utils.EnvOrDefault("AAA_HEALTH_ADDR", c.HTTP.HealthAddr)
	c.Logging.Level = utils.EnvOrDefault("AAA_LOG_LEVEL", c.Logging.Level)

	AppConfig = c
	return &AppConfig
}
