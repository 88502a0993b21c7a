package config

import (
	stdErrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// FileName is the name of root and per-directory configuration files.
const FileName = "config.yml"

var envFiles = []string{".env", ".env.local"}

// LoadRoot reads the required root configuration of a project folder.
// Environment files next to it are loaded first, without overriding values
// already present in the process environment, and ${VAR} references in the
// YAML are expanded before parsing.
func LoadRoot(projectFolder string) (*Config, error) {
	path := filepath.Join(projectFolder, FileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, errors.ConfigError("root config file is required").
			WithSource(path).
			WithCause(err).
			Build()
	}

	loadEnvFiles(projectFolder)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read root config").
			WithSource(path).
			Build()
	}

	cfg, err := Empty().AddFromYAML([]byte(os.ExpandEnv(string(data))), path)
	if err != nil {
		return nil, err
	}
	return New(cfg.values), nil
}

// loadEnvFiles loads each env file that exists. godotenv.Load never
// overrides variables that are already set.
func loadEnvFiles(projectFolder string) {
	for _, name := range envFiles {
		path := filepath.Join(projectFolder, name)
		if _, err := os.Stat(path); stdErrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load environment file", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(path))
	}
}
