package process

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v2"
)

type saveConfig struct {
	Name    string        `help:"name" default:"sheetkit"`
	Rows    int           `help:"rows" default:"10"`
	Zip     bool          `help:"zip" default:"true"`
	Timeout time.Duration `help:"timeout" default:"2s"`
	Storage struct {
		Driver string `help:"driver" default:"local"`
	}
}

func TestSaveConfig(t *testing.T) {
	var conf saveConfig
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", "", "")
	Bind(cmd, &conf)
	require.NoError(t, cmd.Flags().Set("storage.driver", "s3"))

	out := filepath.Join(t.TempDir(), "conf", DefaultCfgFilename)
	require.NoError(t, SaveConfig(cmd, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "sheetkit", got["name"])
	assert.Equal(t, 10, got["rows"])
	assert.Equal(t, true, got["zip"])
	assert.Equal(t, "2s", got["timeout"])
	assert.NotContains(t, got, "config-dir")

	vip := viper.New()
	vip.SetConfigFile(out)
	require.NoError(t, vip.ReadInConfig())
	assert.Equal(t, "s3", vip.GetString("storage.driver"))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCfgFilename), []byte("name: from-file\n"), 0o600))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", dir, "")
	vip := viper.New()
	require.NoError(t, LoadConfig(cmd, vip))
	assert.Equal(t, "from-file", vip.GetString("name"))

	assert.False(t, fileExists(filepath.Join(dir, "missing.yaml")))
}

type exportConfig struct {
	Format  string `help:"format" default:"xlsx"`
	MaxRows int    `help:"max rows" default:"10"`
	Storage struct {
		Driver string `help:"driver" default:"local"`
	}
}

// newTestRoot 带 config-dir 的根命令和一个绑定了 exportConfig 的子命令
func newTestRoot(dir string, conf *exportConfig, run func(cmd *cobra.Command, args []string) error) (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "sheetkit", SilenceErrors: true}
	root.PersistentFlags().String("config-dir", dir, "")
	sub := &cobra.Command{Use: "export", RunE: run}
	root.AddCommand(sub)
	Bind(sub, conf)
	return root, sub
}

func TestRunLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCfgFilename), []byte(
		"format: csv\nmax-rows: 25\nunknown: 1\n"), 0o600))
	t.Setenv("SHEETKIT_STORAGE_DRIVER", "s3")

	var (
		conf  exportConfig
		got   exportConfig
		ctxOK bool
	)
	root, _ := newTestRoot(dir, &conf, func(cmd *cobra.Command, args []string) error {
		got = conf
		ctx, _ := Ctx(cmd)
		ctxOK = ctx.Err() == nil
		zap.L().Info("running")
		return nil
	})
	core, logs := observer.New(zapcore.InfoLevel)
	root.SetArgs([]string{"export"})
	require.NoError(t, Run(root, ExecOptions{
		LoggerFactory: func(*zap.Logger) *zap.Logger { return zap.New(core) },
	}))

	assert.Equal(t, "csv", got.Format)
	assert.Equal(t, 25, got.MaxRows)
	assert.Equal(t, "s3", got.Storage.Driver)
	assert.True(t, ctxOK)

	assert.Equal(t, 1, logs.FilterMessage("configuration loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("running").Len())
	unknown := logs.FilterMessage("invalid configuration file key").All()
	require.Len(t, unknown, 1)
	assert.Equal(t, "unknown", unknown[0].ContextMap()["key"])
}

func TestRunBrokenValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCfgFilename), []byte("max-rows: lots\n"), 0o600))

	var conf exportConfig
	called := false
	root, _ := newTestRoot(dir, &conf, func(cmd *cobra.Command, args []string) error {
		called = true
		return nil
	})
	root.SetArgs([]string{"export"})
	err := Run(root, ExecOptions{FailOnValueError: true, LoggerFactory: func(*zap.Logger) *zap.Logger { return zap.NewNop() }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-rows")
	assert.False(t, called)
}

func TestRunReturnsCommandError(t *testing.T) {
	boom := errors.New("boom")
	var conf exportConfig
	root, sub := newTestRoot(t.TempDir(), &conf, func(cmd *cobra.Command, args []string) error {
		return boom
	})
	root.SetArgs([]string{"export"})
	err := Run(root, ExecOptions{LoggerFactory: func(*zap.Logger) *zap.Logger { return zap.NewNop() }})
	assert.ErrorIs(t, err, boom)
	assert.True(t, sub.SilenceUsage)

	// 命令结束后不再保留它的 context
	ctx, cancel := Ctx(sub)
	defer cancel()
	assert.NoError(t, ctx.Err())
}

func TestRunVersion(t *testing.T) {
	var conf exportConfig
	root, _ := newTestRoot(t.TempDir(), &conf, func(cmd *cobra.Command, args []string) error { return nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, Run(root, ExecOptions{LoggerFactory: func(*zap.Logger) *zap.Logger { return zap.NewNop() }}))
	assert.NotEmpty(t, out.String())
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "CUSTOM", (&ExecOptions{EnvPrefix: "CUSTOM"}).envPrefix())
	t.Setenv("ENV_PREFIX", "FROM_ENV")
	assert.Equal(t, "FROM_ENV", (&ExecOptions{}).envPrefix())
	t.Setenv("ENV_PREFIX", "")
	assert.Equal(t, DefaultEnvPrefix, (&ExecOptions{}).envPrefix())
}
