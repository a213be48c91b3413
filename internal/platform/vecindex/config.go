package vecindex

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Dim is the embedding dimensionality every stored vector must match.
	Dim int
	// Path is the persistence location (without extension). Empty disables
	// persistence and the index lives in memory only.
	Path string
}

type ConfigErrorCode string

const (
	ConfigErrorMissingDim ConfigErrorCode = "missing_dim"
	ConfigErrorInvalidDim ConfigErrorCode = "invalid_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid vector index config"
	}
	switch e.Code {
	case ConfigErrorMissingDim:
		return "VECTOR_INDEX_DIM is required and must be a positive integer"
	case ConfigErrorInvalidDim:
		return fmt.Sprintf("invalid VECTOR_INDEX_DIM=%q; expected positive integer", e.Value)
	default:
		return "invalid vector index config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ResolveConfigFromEnv() (Config, error) {
	rawDim := strings.TrimSpace(os.Getenv("VECTOR_INDEX_DIM"))
	dim := 512
	if rawDim != "" {
		parsed, err := strconv.Atoi(rawDim)
		if err != nil {
			return Config{}, &ConfigError{
				Code:  ConfigErrorInvalidDim,
				Value: rawDim,
				Cause: err,
			}
		}
		dim = parsed
	}

	cfg := Config{
		Dim:  dim,
		Path: strings.TrimSpace(os.Getenv("VECTOR_INDEX_PATH")),
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if cfg.Dim == 0 {
		return &ConfigError{Code: ConfigErrorMissingDim}
	}
	if cfg.Dim < 0 {
		return &ConfigError{
			Code:  ConfigErrorInvalidDim,
			Value: strconv.Itoa(cfg.Dim),
		}
	}
	return nil
}
