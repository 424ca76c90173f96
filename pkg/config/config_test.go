package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProducesAUsableSingleNodeConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "node1", cfg.Node.Name)
	assert.Equal(t, 8880, cfg.Listen.HTTPPort)
	assert.Equal(t, 64, cfg.Pool.Quota)

	self := cfg.Self()
	assert.Equal(t, "node1", self.Name)
	assert.Equal(t, cfg.Listen.HTTPPort, self.HTTPPort)
	assert.Equal(t, cfg.Listen.BinaryPort, self.BinaryPort)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xapiand.yml")
	contents := `
node:
  name: node2
  data_dir: /var/lib/xapiand
cluster:
  name: prod
  multicast: 239.0.0.5:9192
listen:
  address: 0.0.0.0
  http_port: 9880
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node2", cfg.Node.Name)
	assert.Equal(t, "/var/lib/xapiand", cfg.Node.DataDir)
	assert.Equal(t, "prod", cfg.Cluster.Name)
	assert.Equal(t, "239.0.0.5:9192", cfg.Cluster.Multicast)
	assert.Equal(t, "0.0.0.0", cfg.Listen.Address)
	assert.Equal(t, 9880, cfg.Listen.HTTPPort)
	assert.Equal(t, log.DebugLevel, cfg.LogConfig().Level)
	assert.True(t, cfg.LogConfig().JSONOutput)

	// Fields the file omits keep Default's values.
	assert.Equal(t, 64, cfg.Pool.Quota)
	assert.Equal(t, endpoint.DefaultBinaryPort, cfg.Listen.BinaryPort)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestCleanupDurationsTranslateSecondsToDuration(t *testing.T) {
	cfg := Default()
	assert.Equal(t, float64(60), cfg.CleanupInterval().Seconds())
	assert.Equal(t, float64(600), cfg.CleanupMaxIdle().Seconds())
}
