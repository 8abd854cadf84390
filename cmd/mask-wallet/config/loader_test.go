package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's own config out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MASK_ENV", "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6137", cfg.Addr())
	assert.Equal(t, 12*time.Second, cfg.Chains.HeaderRefresh)
	assert.Equal(t, 6*time.Second, cfg.Gas.CacheTTL)
	assert.Equal(t, uint64(20), cfg.Gas.HistoryBlocks)
	assert.Equal(t, uint64(1), cfg.NFTScan.VerifiedChainID)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.PrintVersion)
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "maskwallet")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	yaml := `
server:
  port: "7000"
  allowed_origins: [" chrome-extension://abc ", ""]
nftscan:
  api_key: from-file
  base_urls:
    "137": https://polygon.example/
networks:
  - name: Local
    chainId: 31337
    rpcs:
      - name: anvil
        url: http://127.0.0.1:8545
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("MASK_NFTSCAN_API_KEY", "from-env")

	cfg, err := Load([]string{"--port", "7100"})
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.NFTScan.APIKey)
	assert.Equal(t, []string{"chrome-extension://abc"}, cfg.Server.AllowedOrigins)

	urls, err := cfg.NFTScanBaseURLs()
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{137: "https://polygon.example"}, urls)

	require.Len(t, cfg.Networks, 1)
	assert.Equal(t, uint64(31337), cfg.Networks[0].ChainID)
	require.Len(t, cfg.Networks[0].RPCs, 1)
	assert.Equal(t, "anvil", cfg.Networks[0].RPCs[0].Name)
}

func TestLoadExplicitFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7200\"\n"), 0o600))

	cfg, err := Load([]string{"--config-file", path, "--version"})
	require.NoError(t, err)
	assert.Equal(t, "7200", cfg.Server.Port)
	assert.True(t, cfg.PrintVersion)

	_, err = Load([]string{"--config-file", filepath.Join(home, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadRejectsUnsafeListener(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"--host", "0.0.0.0"})
	assert.Error(t, err)

	_, err = Load([]string{"--port", "99999"})
	assert.Error(t, err)

	cfg, err := Load([]string{"--host", "::1"})
	require.NoError(t, err)
	assert.Equal(t, "[::1]:6137", cfg.Addr())
}

func TestLoadRejectsBadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("MASK_ENV", "staging")

	_, err := Load(nil)
	assert.Error(t, err)
}
