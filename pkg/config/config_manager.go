// Package config reads configuration from the environment. Values are looked
// up on every call so tests and long-lived processes see changes immediately.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// ModelConfig carries the generation defaults shared by every backend. An
// empty ModelName lets each backend fall back to its own default model.
type ModelConfig struct {
	ModelName   string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// PipelineConfig carries the rename pipeline settings.
type PipelineConfig struct {
	// ContentTokenLimit bounds how many tokens of extracted text are
	// forwarded to the naming model.
	ContentTokenLimit int
	// Directory is the default target directory. Empty means unset.
	Directory string
}

// DefaultContentTokenLimit is the token budget applied to extracted content
// when PDFGENIE_CONTENT_TOKEN_LIMIT is not set.
const DefaultContentTokenLimit = 15000

// Manager is the configuration surface handed to components.
type Manager interface {
	GetString(key string) (string, error)
	GetStringWithDefault(key, defaultValue string) string
	GetIntWithDefault(key string, defaultValue int) int
	GetBoolWithDefault(key string, defaultValue bool) bool
	GetModelConfig() ModelConfig
	GetPipelineConfig() PipelineConfig
}

type envManager struct{}

// NewConfigManager returns the environment-backed manager.
func NewConfigManager() Manager {
	return envManager{}
}

// lookup treats empty values the same as unset ones.
func lookup(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

func (envManager) GetString(key string) (string, error) {
	value, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("configuration key %s not found", key)
	}
	return value, nil
}

func (envManager) GetStringWithDefault(key, defaultValue string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return defaultValue
}

func (envManager) GetIntWithDefault(key string, defaultValue int) int {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (envManager) GetBoolWithDefault(key string, defaultValue bool) bool {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetModelConfig assembles the generation defaults. Unparseable values fall
// back silently; a bad override should not break the pipeline.
func (m envManager) GetModelConfig() ModelConfig {
	return ModelConfig{
		ModelName:   m.GetStringWithDefault("PDFGENIE_MODEL_NAME", ""),
		MaxTokens:   envInt32("PDFGENIE_MAX_TOKENS", 1024),
		Temperature: envFloat32("PDFGENIE_MODEL_TEMPERATURE", 0.2),
		TopP:        envFloat32("PDFGENIE_TOP_P", 0.9),
	}
}

// GetPipelineConfig assembles the rename pipeline settings. Non-positive
// token limits are replaced with the default.
func (m envManager) GetPipelineConfig() PipelineConfig {
	limit := m.GetIntWithDefault("PDFGENIE_CONTENT_TOKEN_LIMIT", DefaultContentTokenLimit)
	if limit <= 0 {
		limit = DefaultContentTokenLimit
	}

	return PipelineConfig{
		ContentTokenLimit: limit,
		Directory:         m.GetStringWithDefault("PDFGENIE_DIR", ""),
	}
}

func envInt32(key string, defaultValue int32) int32 {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return defaultValue
	}
	return int32(parsed)
}

func envFloat32(key string, defaultValue float32) float32 {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return defaultValue
	}
	return float32(parsed)
}
