package clip

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// BaseURL of the encoder sidecar, e.g. http://clip:8090.
	BaseURL string
	// EmbedDim is the dimensionality the encoder emits for both image and
	// text inputs. Every downstream consumer assumes this dim.
	EmbedDim int
	Timeout  time.Duration
}

type ConfigErrorCode string

const (
	ConfigErrorMissingBaseURL ConfigErrorCode = "missing_base_url"
	ConfigErrorInvalidBaseURL ConfigErrorCode = "invalid_base_url"
	ConfigErrorInvalidDim     ConfigErrorCode = "invalid_embed_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid clip config"
	}
	switch e.Code {
	case ConfigErrorMissingBaseURL:
		return "CLIP_BASE_URL is required"
	case ConfigErrorInvalidBaseURL:
		return fmt.Sprintf("invalid CLIP_BASE_URL=%q; expected absolute URL like http://clip:8090", e.Value)
	case ConfigErrorInvalidDim:
		return fmt.Sprintf("invalid CLIP_EMBED_DIM=%q; expected positive integer", e.Value)
	default:
		return "invalid clip config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ResolveConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:  strings.TrimRight(strings.TrimSpace(os.Getenv("CLIP_BASE_URL")), "/"),
		EmbedDim: 512,
		Timeout:  30 * time.Second,
	}

	rawDim := strings.TrimSpace(os.Getenv("CLIP_EMBED_DIM"))
	if rawDim != "" {
		parsed, err := strconv.Atoi(rawDim)
		if err != nil || parsed <= 0 {
			return Config{}, &ConfigError{Code: ConfigErrorInvalidDim, Value: rawDim, Cause: err}
		}
		cfg.EmbedDim = parsed
	}

	rawTimeout := strings.TrimSpace(os.Getenv("CLIP_TIMEOUT"))
	if rawTimeout != "" {
		if parsed, err := time.ParseDuration(rawTimeout); err == nil && parsed > 0 {
			cfg.Timeout = parsed
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if cfg.BaseURL == "" {
		return &ConfigError{Code: ConfigErrorMissingBaseURL}
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidBaseURL, Value: cfg.BaseURL, Cause: err}
	}
	if cfg.EmbedDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidDim, Value: strconv.Itoa(cfg.EmbedDim)}
	}
	return nil
}
