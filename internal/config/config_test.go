package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultConcurrency, cfg.Checker.GetConcurrency())
	assert.Equal(t, 3*time.Second, cfg.Checker.GetConnectTimeout())
	assert.Equal(t, 10*time.Second, cfg.Checker.GetRPCTimeout())
	assert.Equal(t, 5*time.Second, cfg.Checker.GetDNSTimeout())
	assert.False(t, cfg.Checker.SkipExisting)
	assert.Equal(t, "https://chainid.network/chains.json", cfg.Chainlist.URL)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "all.json", cfg.Output.MergedFile)
	assert.Equal(t, "console", cfg.Logger.Encoding)
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
checker:
  concurrency: 4
  rpc_timeout: 2s
  chain_ids: [1, 56]
output:
  dir: from-file
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", DefaultConcurrency, "")
	flags.String("out", "output", "")
	flags.Bool("skip-existing", false, "")
	require.NoError(t, flags.Parse([]string{"--out", "from-flag", "--skip-existing"}))

	cfg, err := Load(dir, flags)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Checker.Concurrency, "unset flag must not override the file")
	assert.Equal(t, 2*time.Second, cfg.Checker.GetRPCTimeout())
	assert.Equal(t, []int64{1, 56}, cfg.Checker.ChainIDs)
	assert.Equal(t, "from-flag", cfg.Output.Dir)
	assert.True(t, cfg.Checker.SkipExisting)
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, 1, ClampConcurrency(-5))
	assert.Equal(t, 1, ClampConcurrency(0))
	assert.Equal(t, 16, ClampConcurrency(16))
	assert.Equal(t, 128, ClampConcurrency(500))
}
