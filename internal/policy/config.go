package policy

import "fmt"

// Default thresholds applied when the host configures nothing.
const (
	DefaultMinLength  = 8
	DefaultMinDigits  = 2
	DefaultMinSpecial = 2
	DefaultMinUpper   = 2
	DefaultMinLower   = 2
)

// ConfigErrorCode classifies configuration failures.
type ConfigErrorCode string

const (
	// ConfigOutOfRange indicates a threshold outside the allowed range.
	ConfigOutOfRange ConfigErrorCode = "out_of_range"
	// ConfigInconsistentThresholds indicates the per-class minimums sum
	// past the minimum length, so no secret could ever satisfy them.
	ConfigInconsistentThresholds ConfigErrorCode = "inconsistent_thresholds"
)

// ConfigError is a fatal load-time configuration failure. It prevents a
// configuration from becoming active and is never surfaced per-request.
type ConfigError struct {
	Code      ConfigErrorCode
	Field     string
	Value     int
	Sum       int
	MinLength int
}

func (e *ConfigError) Error() string {
	switch e.Code {
	case ConfigOutOfRange:
		return fmt.Sprintf("policy config: %s must be a positive integer, got %d", e.Field, e.Value)
	case ConfigInconsistentThresholds:
		return fmt.Sprintf("policy config: sum of minimum character requirements (%d) exceeds minimum password length (%d)", e.Sum, e.MinLength)
	default:
		return "policy config: invalid configuration"
	}
}

// Config holds the five composition thresholds. A Config is immutable
// once constructed; reconfiguration builds a new value and publishes it
// through a Store.
type Config struct {
	MinLength  int `json:"min_length"`
	MinDigits  int `json:"min_digits"`
	MinSpecial int `json:"min_special"`
	MinUpper   int `json:"min_upper"`
	MinLower   int `json:"min_lower"`
}

// DefaultConfig returns the default policy configuration.
func DefaultConfig() *Config {
	return &Config{
		MinLength:  DefaultMinLength,
		MinDigits:  DefaultMinDigits,
		MinSpecial: DefaultMinSpecial,
		MinUpper:   DefaultMinUpper,
		MinLower:   DefaultMinLower,
	}
}

// NewConfig validates the five thresholds and returns a Config, or a
// *ConfigError describing the first violation found.
func NewConfig(minLength, minDigits, minSpecial, minUpper, minLower int) (*Config, error) {
	cfg := &Config{
		MinLength:  minLength,
		MinDigits:  minDigits,
		MinSpecial: minSpecial,
		MinUpper:   minUpper,
		MinLower:   minLower,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks range and consistency. Every threshold must be a
// positive integer, and the class minimums must fit inside MinLength.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"min_password_length", c.MinLength},
		{"min_numbers", c.MinDigits},
		{"min_special_chars", c.MinSpecial},
		{"min_uppercase", c.MinUpper},
		{"min_lowercase", c.MinLower},
	}
	for _, f := range fields {
		if f.value < 1 {
			return &ConfigError{Code: ConfigOutOfRange, Field: f.name, Value: f.value}
		}
	}

	sum := c.MinDigits + c.MinSpecial + c.MinUpper + c.MinLower
	if c.MinLength < sum {
		return &ConfigError{Code: ConfigInconsistentThresholds, Sum: sum, MinLength: c.MinLength}
	}
	return nil
}
