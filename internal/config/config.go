package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvRoot is the environment variable naming the base directory.
const EnvRoot = "LOGZIP_ROOT"

// Config is the serve-mode configuration. The server exposes the "logs"
// subdirectory of Root.
type Config struct {
	// Root is the base directory; logs are served from <Root>/logs.
	Root string `yaml:"root"`
	// Interface optionally pins the network interface to bind.
	Interface string `yaml:"interface"`
	// Port is the listen port; 0 picks a random free port.
	Port int `yaml:"port"`
	// Advertise controls mDNS advertisement of the server.
	Advertise bool `yaml:"advertise"`
}

// Load resolves the configuration. Precedence: explicit values in flags
// (applied by the caller after Load), then the LOGZIP_ROOT environment
// variable, then the YAML file at path. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{Advertise: true}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if env := os.Getenv(EnvRoot); env != "" {
		cfg.Root = env
	}
	return cfg, nil
}

// LogsDir validates the configuration and returns the directory to
// serve. It fails when the root is unset or the logs subdirectory does
// not exist; callers must not start a walk in that case.
func (c Config) LogsDir() (string, error) {
	if c.Root == "" {
		return "", fmt.Errorf("base directory not configured (set %s)", EnvRoot)
	}
	dir := filepath.Join(c.Root, "logs")
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("logs directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", dir)
	}
	return dir, nil
}
