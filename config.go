package falken

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// APIKeyEnv is consulted when the config carries no api key. A .env file in
// the working directory is loaded first, so local development does not need
// the key in the shell environment.
const APIKeyEnv = "FALKEN_API_KEY"

// #region config
// Config selects the project, credentials, and service deployment. It
// mirrors the JSON config file issued with a project:
//
//	{
//	  "api_key": "...",
//	  "project_id": "...",
//	  "api_call_timeout_milliseconds": 30000,
//	  "service": {"environment": "prod", "connection": {"address": ""}}
//	}
type Config struct {
	APIKey                     string        `json:"api_key"`
	ProjectID                  string        `json:"project_id"`
	APICallTimeoutMilliseconds int           `json:"api_call_timeout_milliseconds"`
	Service                    ServiceConfig `json:"service"`

	// ScratchDir is where model bundles are unpacked; defaults to a fresh
	// temporary directory.
	ScratchDir string `json:"scratch_dir"`
	// JournalPath enables the local session journal when non-empty.
	JournalPath string `json:"journal_path"`
}

// ServiceConfig selects the deployment to talk to.
type ServiceConfig struct {
	Environment string           `json:"environment"`
	Connection  ConnectionConfig `json:"connection"`
}

// ConnectionConfig optionally pins an explicit endpoint instead of the
// environment's default.
type ConnectionConfig struct {
	Address string `json:"address"`
}

// LoadConfig reads a JSON config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// normalize fills defaults and resolves the api key from the environment
// when the config leaves it empty.
func (c *Config) normalize() error {
	if c.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrAuth)
	}
	if c.APIKey == "" {
		godotenv.Load()
		c.APIKey = os.Getenv(APIKeyEnv)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: no api_key in config and %s unset", ErrAuth, APIKeyEnv)
	}
	if c.APICallTimeoutMilliseconds <= 0 {
		c.APICallTimeoutMilliseconds = 30000
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "prod"
	}
	return nil
}

// #endregion config
