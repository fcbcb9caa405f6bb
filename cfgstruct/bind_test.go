package cfgstruct

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level string

type testConfig struct {
	Name     string        `help:"name" default:"sheetkit"`
	Level    level         `help:"level" default:"info"`
	Root     string        `help:"root" default:"$ROOT/data"`
	Debug    bool          `help:"debug" default:"true"`
	MaxRows  int           `help:"rows" default:"100"`
	Ratio    float64       `help:"ratio" default:"1.5"`
	Timeout  time.Duration `help:"timeout" default:"3s"`
	Tags     []string      `help:"tags" default:"a,b"`
	LogLevel string        `help:"log" default:"info" releaseDefault:"warn" devDefault:"debug"`
	Hidden   func()        `internal:"true"`
	HTTPAddr string        `help:"addr" default:":8080"`
	Store    struct {
		Driver string `help:"driver" default:"local"`
		S3     struct {
			Bucket string `help:"bucket" default:""`
		}
	}
}

func TestBind(t *testing.T) {
	var conf testConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Bind(flags, &conf, RootDir("/srv"), UseReleaseDefaults())

	assert.Equal(t, "sheetkit", conf.Name)
	assert.Equal(t, level("info"), conf.Level)
	assert.Equal(t, "/srv/data", conf.Root)
	assert.True(t, conf.Debug)
	assert.Equal(t, 100, conf.MaxRows)
	assert.Equal(t, 1.5, conf.Ratio)
	assert.Equal(t, 3*time.Second, conf.Timeout)
	assert.Equal(t, []string{"a", "b"}, conf.Tags)
	assert.Equal(t, "warn", conf.LogLevel)
	assert.Equal(t, "local", conf.Store.Driver)
	assert.Nil(t, flags.Lookup("hidden"))

	require.NoError(t, flags.Parse([]string{
		"--max-rows=5", "--store.driver=s3", "--store.s3.bucket=reports", "--http-addr=:9000", "--level=debug",
	}))
	assert.Equal(t, 5, conf.MaxRows)
	assert.Equal(t, "s3", conf.Store.Driver)
	assert.Equal(t, "reports", conf.Store.S3.Bucket)
	assert.Equal(t, ":9000", conf.HTTPAddr)
	assert.Equal(t, level("debug"), conf.Level)
}

func TestBindDevDefaults(t *testing.T) {
	var conf testConfig
	Bind(pflag.NewFlagSet("test", pflag.ContinueOnError), &conf, UseDevDefaults())
	assert.Equal(t, "debug", conf.LogLevel)
}

func TestBindInvalid(t *testing.T) {
	assert.Panics(t, func() {
		Bind(pflag.NewFlagSet("test", pflag.ContinueOnError), testConfig{})
	})
	var bad struct {
		N int `default:"abc"`
	}
	assert.Panics(t, func() {
		Bind(pflag.NewFlagSet("test", pflag.ContinueOnError), &bad)
	})
}

func TestFlagName(t *testing.T) {
	for in, want := range map[string]string{
		"MaxIdleConn": "max-idle-conn",
		"AccessKeyId": "access-key-id",
		"S3":          "s3",
		"HTTPAddr":    "http-addr",
		"Dsn":         "dsn",
		"URL":         "url",
	} {
		assert.Equal(t, want, FlagName(in), in)
	}
}
