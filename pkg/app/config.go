package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/atsinspect/pkg/log"
)

// EnvPrefix prefixes the environment variables mapped onto flags:
// --postgres.dsn is read from ATS_POSTGRES_DSN.
const EnvPrefix = "ATS"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func (a *App) addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&a.configFile, "config", "c", a.configFile,
		"Read configuration from the specified file, support JSON, TOML, YAML, HCL, or Java properties formats.")
}

// loadConfig reads the configuration file, either the one given with --config
// or {name}.yaml from the working directory, $HOME/.ats or /etc/ats. A
// missing default file is not an error.
func (a *App) loadConfig() error {
	if a.configFile != "" {
		a.viper.SetConfigFile(a.configFile)
	} else {
		a.viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.viper.AddConfigPath(filepath.Join(home, ".ats"))
		}
		a.viper.AddConfigPath("/etc/ats")
		a.viper.SetConfigName(a.name)
		a.viper.SetConfigType("yaml")
	}

	if err := a.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// watchConfig applies log level changes from the configuration file without
// a restart. Other settings need a restart.
func (a *App) watchConfig() {
	if a.viper.ConfigFileUsed() == "" {
		return
	}
	a.viper.OnConfigChange(func(e fsnotify.Event) {
		level := a.viper.GetString("log.level")
		log.SetLevel(level)
		log.Info("Configuration file changed", "file", e.Name, "log.level", level)
	})
	a.viper.WatchConfig()
}
