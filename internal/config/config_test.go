package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFindsConfigInParentAndResolvesRelativeDBPath(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "repo")
	subDir := filepath.Join(projectDir, "a", "b")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	cfgContent := "# team board\ndb=.wb/board.db\nboard=b-1\nrole=Product_Owner\nlang=ko-KR\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, FileName), []byte(cfgContent), 0o644))

	cfg, err := Discover(subDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, filepath.Join(projectDir, ".wb", "board.db"), cfg.DBPath)
	assert.Equal(t, "b-1", cfg.Board)
	assert.Equal(t, "product_owner", string(cfg.Role))
	assert.Equal(t, "ko", cfg.Lang)
}

func TestDiscoverNoConfigReturnsNil(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestDiscoverRejectsInvalidValues(t *testing.T) {
	for name, content := range map[string]string{
		"role":        "role=admin\n",
		"lang":        "lang=xx-unknown\n",
		"unknown key": "project=cat\n",
		"no equals":   "db\n",
		"empty db":    "db=\n",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
			_, err := Discover(dir)
			assert.Error(t, err)
		})
	}
}
