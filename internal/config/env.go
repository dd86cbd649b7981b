package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"

	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/workflow"
)

// Env is the WB_* environment overlay. Empty strings mean unset.
type Env struct {
	DBPath   string `env:"WB_DB_PATH"`
	Board    string `env:"WB_BOARD"`
	Role     string `env:"WB_ROLE"`
	Lang     string `env:"WB_LANG"`
	Addr     string `env:"WB_ADDR" envDefault:":8080"`
	LogLevel string `env:"WB_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Settings is the effective configuration after layering the environment
// over the wbconfig file.
type Settings struct {
	ConfigPath string
	DBPath     string
	Board      string
	Role       workflow.UserRole
	Lang       language.Tag
	Addr       string
	LogLevel   slog.Level
}

// Resolve merges file and e. Environment values win; file may be nil.
func Resolve(file *Config, e Env) (Settings, error) {
	s := Settings{
		Role: workflow.RoleDeveloper,
		Lang: i18n.Default(),
		Addr: e.Addr,
	}
	if file != nil {
		s.ConfigPath = file.Path
		s.DBPath = file.DBPath
		s.Board = file.Board
		if file.Role != "" {
			s.Role = file.Role
		}
		if file.Lang != "" {
			s.Lang = i18n.ParseOrDefault(file.Lang)
		}
	}

	if v := strings.TrimSpace(e.DBPath); v != "" {
		s.DBPath = v
	}
	if v := strings.TrimSpace(e.Board); v != "" {
		s.Board = v
	}
	if v := strings.TrimSpace(e.Role); v != "" {
		role := workflow.UserRole(strings.ToLower(v))
		if !workflow.IsValidRole(role) {
			return Settings{}, fmt.Errorf("WB_ROLE: unknown role %q", v)
		}
		s.Role = role
	}
	if v := strings.TrimSpace(e.Lang); v != "" {
		tag, ok := i18n.Parse(v)
		if !ok {
			return Settings{}, fmt.Errorf("WB_LANG: unsupported language %q", v)
		}
		s.Lang = tag
	}

	level, err := ParseLogLevel(e.LogLevel)
	if err != nil {
		return Settings{}, fmt.Errorf("WB_LOG_LEVEL: %w", err)
	}
	s.LogLevel = level
	return s, nil
}

// ParseLogLevel accepts debug, info, warn and error. Empty means info.
func ParseLogLevel(value string) (slog.Level, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
