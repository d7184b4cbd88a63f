package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.ServiceOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melodymatch.toml")
	writeFile(t, path, `
[catalog]
ordered_index = "sorted"
index_key = "mean"

[predict]
widen_factor = 3.0

[server]
port = 9000
allowed_origins = ["http://localhost:3000"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sorted", cfg.Catalog.OrderedIndex)
	assert.Equal(t, "trie", cfg.Catalog.PrefixIndex)
	assert.Equal(t, "mean", cfg.Catalog.IndexKey)
	assert.Equal(t, 3.0, cfg.Predict.WidenFactor)
	assert.Equal(t, DefaultConfig().Predict.MinCandidates, cfg.Predict.MinCandidates)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `
[catalog]
ordered_index = "avl"

[match]
default_top_k = 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.ordered_index")
	assert.Contains(t, err.Error(), "match.default_top_k")
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	writeFile(t, path, "[catalog\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Catalog.PrefixIndex = "patricia"
	cfg.Match.MaxTopK = 50
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigWithPriority(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.toml")
	writeFile(t, custom, "[server]\nport = 7000\n")

	cfg, used, err := LoadConfigWithPriority(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, used)
	assert.Equal(t, 7000, cfg.Server.Port)

	t.Setenv("MELODY_CONFIG", custom)
	cfg, used, err = LoadConfigWithPriority(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, custom, used)
	assert.Equal(t, 7000, cfg.Server.Port)

	t.Setenv("MELODY_CONFIG", "")
	t.Chdir(dir)
	cfg, used, err = LoadConfigWithPriority("")
	require.NoError(t, err)
	assert.Equal(t, "", used)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigWarningsFollowLoggerLevel(t *testing.T) {
	log := logger.GetLogger()
	prev := log.Level()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stdout)
		log.SetLevel(prev)
	})

	path := filepath.Join(t.TempDir(), "melodymatch.toml")
	writeFile(t, path, "[catalog]\nmystery_key = 1\n")

	log.SetLevel(logger.ERROR)
	_, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	log.SetLevel(logger.WARN)
	_, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mystery_key")
	assert.Contains(t, buf.String(), "component=config")
}
