package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/parleyhq/parley/pkg/types"
)

// Load merges configuration from multiple sources, later sources winning:
//  1. Global config (~/.config/parley/parley.json[c])
//  2. PARLEY_CONFIG file override
//  3. PARLEY_CONFIG_CONTENT inline JSON
//  4. Environment variables
func Load() (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if LoadFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "parley.json"))
	loadOnce(filepath.Join(globalPath, "parley.jsonc"))

	if configPath := os.Getenv("PARLEY_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	if configContent := os.Getenv("PARLEY_CONFIG_CONTENT"); configContent != "" {
		var inline types.Config
		if err := json.Unmarshal([]byte(configContent), &inline); err == nil {
			merge(config, &inline)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// LoadFile loads one JSONC config file into config, with {env:VAR}
// interpolation.
func LoadFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	merge(config, &fileConfig)
	return nil
}

// interpolate replaces {env:VAR_NAME} placeholders with environment
// variable values.
func interpolate(data []byte) []byte {
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

// merge folds source into target, field by field.
func merge(target, source *types.Config) {
	if source.MasterSecret != "" {
		target.MasterSecret = source.MasterSecret
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.Port != 0 {
		target.Port = source.Port
	}
	if source.Hostname != "" {
		target.Hostname = source.Hostname
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}
}

// applyEnvOverrides applies environment variables, the highest-priority
// source.
func applyEnvOverrides(config *types.Config) {
	if secret := os.Getenv("PARLEY_MASTER_SECRET"); secret != "" {
		config.MasterSecret = secret
	}
	if dataDir := os.Getenv("PARLEY_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}
	if port := os.Getenv("PARLEY_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Port = n
		}
	}
	if hostname := os.Getenv("PARLEY_HOSTNAME"); hostname != "" {
		config.Hostname = hostname
	}
	if level := os.Getenv("PARLEY_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
}

func applyDefaults(config *types.Config) {
	if config.DataDir == "" {
		config.DataDir = GetPaths().StoragePath()
	}
	if config.Port == 0 {
		config.Port = 4747
	}
	if config.Hostname == "" {
		config.Hostname = "127.0.0.1"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// Save writes the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
