package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/dops/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("api-url", "", "")
	cmd.Flags().String("timings", "", "")
	cmd.Flags().String("data-dir", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func testViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func TestBindFlagsFromEnvironment(t *testing.T) {
	t.Setenv("DOPS_API_URL", "http://env.example:8000")
	t.Setenv("DOPS_DATA_DIR", "/tmp/dops-env")

	cmd := newTestCommand(t, "--data-dir", "/tmp/dops-flag")
	require.NoError(t, bindFlags(cmd, testViper()))

	url, _ := cmd.Flags().GetString("api-url")
	assert.Equal(t, "http://env.example:8000", url)

	dir, _ := cmd.Flags().GetString("data-dir")
	assert.Equal(t, "/tmp/dops-flag", dir, "explicit flags win over the environment")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestCommand(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, config.DefaultTimings(), cfg.Timings)
}

func TestLoadConfigTimingsFileAndURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://file.example
timings:
  poll_interval: 500ms
`), 0o600))

	cfg, err := loadConfig(newTestCommand(t, "--timings", path))
	require.NoError(t, err)
	assert.Equal(t, "http://file.example", cfg.APIURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Timings.PollInterval)

	cfg, err = loadConfig(newTestCommand(t, "--timings", path, "--api-url", "http://flag.example/"))
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example", cfg.APIURL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(newTestCommand(t, "--timings", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestInitConfigRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("DOPS_LOG_LEVEL", "verbose")

	cmd := newTestCommand(t)
	cmd.Flags().String("log-level", "warn", "")
	cmd.Flags().Bool("log-json", false, "")

	err := initConfig(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}
