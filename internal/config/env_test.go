package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/satyaki-up/workboard/internal/workflow"
)

func TestLoadEnvDefaults(t *testing.T) {
	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", e.Addr)
	assert.Equal(t, "info", e.LogLevel)
}

func TestResolveEnvWinsOverFile(t *testing.T) {
	t.Setenv("WB_DB_PATH", "/tmp/env.db")
	t.Setenv("WB_ROLE", "product_owner")
	t.Setenv("WB_LANG", "ko")
	t.Setenv("WB_LOG_LEVEL", "debug")
	e, err := LoadEnv()
	require.NoError(t, err)

	file := &Config{Path: "/repo/wbconfig", DBPath: "/repo/.wb/board.db", Board: "b-1", Role: workflow.RoleDeveloper, Lang: "en"}
	s, err := Resolve(file, e)
	require.NoError(t, err)

	assert.Equal(t, "/repo/wbconfig", s.ConfigPath)
	assert.Equal(t, "/tmp/env.db", s.DBPath)
	assert.Equal(t, "b-1", s.Board)
	assert.Equal(t, workflow.RoleProductOwner, s.Role)
	assert.Equal(t, language.Korean, s.Lang)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
}

func TestResolveDefaultsWithoutFile(t *testing.T) {
	s, err := Resolve(nil, Env{Addr: ":9000"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleDeveloper, s.Role)
	assert.Equal(t, language.English, s.Lang)
	assert.Equal(t, ":9000", s.Addr)
	assert.Equal(t, slog.LevelInfo, s.LogLevel)
	assert.Empty(t, s.DBPath)
}

func TestResolveRejectsBadEnv(t *testing.T) {
	_, err := Resolve(nil, Env{Role: "admin"})
	assert.ErrorContains(t, err, "WB_ROLE")

	_, err = Resolve(nil, Env{Lang: "xx-unknown"})
	assert.ErrorContains(t, err, "WB_LANG")

	_, err = Resolve(nil, Env{LogLevel: "loud"})
	assert.ErrorContains(t, err, "WB_LOG_LEVEL")
}

func TestParseEnvErrorIsPrefixed(t *testing.T) {
	var target struct {
		Port int `env:"WB_TEST_PORT"`
	}
	t.Setenv("WB_TEST_PORT", "not-an-int")
	err := ParseEnv(&target)
	assert.ErrorContains(t, err, "parse env:")
}
