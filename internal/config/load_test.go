package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestLoadRoot_MissingConfig(t *testing.T) {
	_, err := LoadRoot(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "root config file is required")
}

func TestLoadRoot_ExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLOGBUILDER_TEST_SHORTNAME=from-dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("modules:\n  disqus:\n    shortname: ${BLOGBUILDER_TEST_SHORTNAME}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BLOGBUILDER_TEST_SHORTNAME") })

	cfg, err := LoadRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.RootGet("modules.disqus.shortname", ""))
}

func TestLoadRoot_ExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLOGBUILDER_TEST_URL", "/from-env/")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLOGBUILDER_TEST_URL=/from-file/\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("url_root: ${BLOGBUILDER_TEST_URL}\n"), 0o600))

	cfg, err := LoadRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, "/from-env/", cfg.String("url_root", ""))
}

func TestLoadRoot_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), nil, 0o600))

	cfg, err := LoadRoot(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Keys(""))
}
