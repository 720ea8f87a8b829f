package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type serverOptions struct {
	Server struct {
		Addr    string        `mapstructure:"addr"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	completed bool
}

func newServerOptions() *serverOptions {
	o := &serverOptions{}
	o.Server.Addr = ":8080"
	o.Server.Timeout = time.Second
	return o
}

func (o *serverOptions) Flags() cliflag.NamedFlagSets {
	var fss cliflag.NamedFlagSets
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "Bind address.")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", o.Server.Timeout, "Timeout.")
	return fss
}

func (o *serverOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *serverOptions) Validate() error {
	if o.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

func execute(t *testing.T, opts *serverOptions, args ...string) (bool, error) {
	t.Helper()
	ran := false
	a := NewApp("ats-test", "test app",
		WithOptions(opts),
		WithDefaultValidArgs(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs(args)
	return ran, a.Command().Execute()
}

func TestFlagsOverrideDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	opts := newServerOptions()
	ran, err := execute(t, opts, "--server.addr=:9090")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, ":9090", opts.Server.Addr)
	assert.Equal(t, time.Second, opts.Server.Timeout)
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := filepath.Join(dir, "ats.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server:\n  addr: \":7070\"\n  timeout: 3s\n"), 0o600))

	opts := newServerOptions()
	_, err := execute(t, opts, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, ":7070", opts.Server.Addr)
	assert.Equal(t, 3*time.Second, opts.Server.Timeout)

	t.Setenv("ATS_SERVER_ADDR", ":6060")
	opts = newServerOptions()
	_, err = execute(t, opts, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, ":6060", opts.Server.Addr, "environment wins over the config file")
}

func TestMissingExplicitConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())

	ran, err := execute(t, newServerOptions(), "--config", "does-not-exist.yaml")
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestValidationAndArgs(t *testing.T) {
	t.Chdir(t.TempDir())

	ran, err := execute(t, newServerOptions(), "--server.addr=")
	assert.EqualError(t, err, "server.addr must not be empty")
	assert.False(t, ran)

	_, err = execute(t, newServerOptions(), "extra")
	assert.Error(t, err)
}
