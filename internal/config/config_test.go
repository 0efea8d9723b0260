package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("BOT_PREFIXES", "")
	os.Unsetenv("BOT_PREFIXES")

	cfg, err := New(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{">>>"}, cfg.Prefixes)
	assert.True(t, cfg.MentionPrefix)
	assert.Equal(t, 1000, cfg.EditCacheSize)
	assert.Equal(t, "./TOKEN", cfg.TokenPath)
	assert.Equal(t, "cogs", cfg.ExtensionsDir)
	assert.Equal(t, "pings", cfg.Activity)
}

func TestNewFromEnvFile(t *testing.T) {
	for _, k := range []string{"BOT_PREFIXES", "BOT_OWNER_IDS", "EDIT_CACHE_SIZE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	file := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(file, []byte("BOT_PREFIXES=!,!!\nBOT_OWNER_IDS=1,2\nEDIT_CACHE_SIZE=5\n"), 0o644))

	cfg, err := New(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"!", "!!"}, cfg.Prefixes)
	assert.True(t, cfg.IsOwner("2"))
	assert.False(t, cfg.IsOwner("3"))
	assert.Equal(t, 5, cfg.EditCacheSize)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Prefixes: []string{"!", ""}}).Validate())
	assert.Error(t, (&Config{MentionPrefix: true, EditCacheSize: -1}).Validate())
	assert.NoError(t, (&Config{MentionPrefix: true}).Validate())
}
