package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/growhub-io/growhub/pkg/log"
)

const configFlagName = "config"

// addConfigFlag registers the --config flag for the named application.
func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringP(configFlagName, "c", "", fmt.Sprintf("Path to the %s configuration file (yaml, json, or toml).", name))
}

// loadConfig merges, in increasing precedence: config file values,
// environment variables (GROWHUB_ prefix, dots and dashes mapped to
// underscores), and explicit command-line flags. The merged result is
// unmarshalled into the options struct via its mapstructure tags.
func loadConfig(fs *pflag.FlagSet, opts CliOptions, watch bool) error {
	v := viper.New()

	v.SetEnvPrefix("GROWHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfgFile, _ := fs.GetString(configFlagName)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %q: %w", cfgFile, err)
		}

		if watch {
			v.OnConfigChange(func(e fsnotify.Event) {
				log.Info("Config file changed, re-applying", "file", e.Name, "op", e.Op.String())
				if err := v.Unmarshal(opts); err != nil {
					log.Error(err, "Failed to re-apply changed config, keeping previous values")
					return
				}
				if err := opts.Validate(); err != nil {
					log.Error(err, "Changed config failed validation, runtime values may be inconsistent")
				}
			})
			v.WatchConfig()
		}
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
