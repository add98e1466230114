package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/credpolicy/internal/policy"
)

// Dictionary fail modes: what the host does when the weak-secret corpus
// cannot be consulted.
const (
	FailModeOpen   = "open"
	FailModeClosed = "closed"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// PolicyConfig carries the five thresholds under their historical
// setting names. Range and consistency are enforced by policy.Config;
// the validator tags catch non-positive values at unmarshal time.
type PolicyConfig struct {
	MinPasswordLength int `mapstructure:"min_password_length" validate:"min=1"`
	MinNumbers        int `mapstructure:"min_numbers" validate:"min=1"`
	MinSpecialChars   int `mapstructure:"min_special_chars" validate:"min=1"`
	MinUppercase      int `mapstructure:"min_uppercase" validate:"min=1"`
	MinLowercase      int `mapstructure:"min_lowercase" validate:"min=1"`
}

type DictionaryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	FailMode string `mapstructure:"fail_mode" validate:"oneof=open closed"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
}

// bootstrap holds environment-only overrides read before the config
// file, so containerized deployments can relocate the file and port
// without editing it.
type bootstrap struct {
	ConfigFile string `envconfig:"CONFIG_FILE"`
	Port       int    `envconfig:"PORT"`
}

// Load reads config.yaml plus environment overrides and validates the
// result. The same path serves startup and reload; callers must not
// activate a config Load returned an error for.
func Load() (*Config, error) {
	var boot bootstrap
	if err := envconfig.Process("credpolicy", &boot); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if boot.ConfigFile != "" {
		v.SetConfigFile(boot.ConfigFile)
	}
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults mirror the historical
		// out-of-the-box policy.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if boot.Port != 0 {
		cfg.Server.Port = boot.Port
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("policy.min_password_length", policy.DefaultMinLength)
	v.SetDefault("policy.min_numbers", policy.DefaultMinDigits)
	v.SetDefault("policy.min_special_chars", policy.DefaultMinSpecial)
	v.SetDefault("policy.min_uppercase", policy.DefaultMinUpper)
	v.SetDefault("policy.min_lowercase", policy.DefaultMinLower)
	v.SetDefault("dictionary.enabled", true)
	v.SetDefault("dictionary.fail_mode", FailModeOpen)
}

// ToPolicy builds the validated policy configuration, including the
// thresholds-fit-in-length consistency check.
func (c *Config) ToPolicy() (*policy.Config, error) {
	return policy.NewConfig(
		c.Policy.MinPasswordLength,
		c.Policy.MinNumbers,
		c.Policy.MinSpecialChars,
		c.Policy.MinUppercase,
		c.Policy.MinLowercase,
	)
}
