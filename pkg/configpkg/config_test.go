package configpkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600)
	require.NoError(t, err)

	return dir
}

func TestLoad(t *testing.T) {
	dir := writeEnvFile(t, "SERVER_ADDRESS=127.0.0.1:9000\nSTORAGE_DRIVER=sqlite\nTRANSFER_TIMEOUT=5s\n")

	config, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", config.ServerAddress)
	require.Equal(t, StorageSQLite, config.StorageDriver)
	require.Equal(t, 5*time.Second, config.TransferTimeout)

	// Keys missing from the file fall back to defaults.
	require.Equal(t, NotifierQueue, config.Notifier)
	require.Equal(t, int32(6), config.TokenDecimals)
	require.Equal(t, 30*time.Second, config.VenuePollInterval)
	require.False(t, config.OperatorAuthEnabled())
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeEnvFile(t, "CHAIN_MODE=simulated\n")

	t.Setenv("CHAIN_MODE", ChainEVM)
	t.Setenv("TRANSFER_WORKERS", "7")

	config, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, ChainEVM, config.ChainMode)
	require.Equal(t, 7, config.TransferWorkers)
}

func TestLoadWithoutFile(t *testing.T) {
	config, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, StorageMemory, config.StorageDriver)
	require.Equal(t, "0.0.0.0:3001", config.ServerAddress)
}
