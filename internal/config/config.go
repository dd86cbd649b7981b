package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/workflow"
)

const FileName = "wbconfig"

// Config is the content of a discovered wbconfig file.
type Config struct {
	Path   string
	DBPath string
	Board  string
	Role   workflow.UserRole
	Lang   string
}

// Discover walks up from startDir looking for a wbconfig file. It returns
// nil, nil when none exists.
func Discover(startDir string) (*Config, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			cfg, err := parseFile(candidate)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func parseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{Path: path}
	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid %s:%d: expected key=value", path, i+1)
		}
		key = strings.TrimSpace(strings.ToLower(key))
		value = strings.TrimSpace(value)

		switch key {
		case "db":
			if value == "" {
				return nil, fmt.Errorf("invalid %s:%d: db cannot be empty", path, i+1)
			}
			if filepath.IsAbs(value) {
				cfg.DBPath = value
			} else {
				cfg.DBPath = filepath.Clean(filepath.Join(filepath.Dir(path), value))
			}
		case "board":
			cfg.Board = value
		case "role":
			role := workflow.UserRole(strings.ToLower(value))
			if !workflow.IsValidRole(role) {
				return nil, fmt.Errorf("invalid %s:%d: role must be developer or product_owner", path, i+1)
			}
			cfg.Role = role
		case "lang":
			tag, ok := i18n.Parse(value)
			if !ok {
				return nil, fmt.Errorf("invalid %s:%d: unsupported language %q", path, i+1, value)
			}
			cfg.Lang = tag.String()
		default:
			return nil, fmt.Errorf("invalid %s:%d: unsupported key %q", path, i+1, key)
		}
	}
	return cfg, nil
}
