package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindFlags registers every Config flag on cmd and binds it through viper,
// honoring the REGISTRY_ environment variable prefix (env overrides flag
// defaults, per spec §6).
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	defaults := Default()

	cmd.PersistentFlags().String("data-path", defaults.DataPath, "directory for persisted files")
	cmd.PersistentFlags().String("transport", defaults.Transport, "stdio | http")
	cmd.PersistentFlags().String("host", defaults.Host, "HTTP bind host")
	cmd.PersistentFlags().Int("port", defaults.Port, "HTTP bind port")
	cmd.PersistentFlags().String("path", defaults.Path, "HTTP bind path")
	cmd.PersistentFlags().String("log-level", defaults.LogLevel, "DEBUG | INFO | WARNING | ERROR")
	cmd.PersistentFlags().Bool("enable-auth", defaults.EnableAuth, "require an API key (HTTP only)")
	cmd.PersistentFlags().String("search-method", defaults.SearchMethod, "default search algorithm tag")
	cmd.PersistentFlags().String("description", defaults.Description, "human-readable server blurb")
	cmd.PersistentFlags().String("device", defaults.Device, "semantic search device")
	cmd.PersistentFlags().String("storage-backend", defaults.StorageBackend, "json | sql")

	_ = v.BindPFlag("data_path", cmd.PersistentFlags().Lookup("data-path"))
	_ = v.BindPFlag("transport", cmd.PersistentFlags().Lookup("transport"))
	_ = v.BindPFlag("host", cmd.PersistentFlags().Lookup("host"))
	_ = v.BindPFlag("port", cmd.PersistentFlags().Lookup("port"))
	_ = v.BindPFlag("path", cmd.PersistentFlags().Lookup("path"))
	_ = v.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("enable_auth", cmd.PersistentFlags().Lookup("enable-auth"))
	_ = v.BindPFlag("search_method", cmd.PersistentFlags().Lookup("search-method"))
	_ = v.BindPFlag("description", cmd.PersistentFlags().Lookup("description"))
	_ = v.BindPFlag("device", cmd.PersistentFlags().Lookup("device"))
	_ = v.BindPFlag("storage_backend", cmd.PersistentFlags().Lookup("storage-backend"))

	v.SetEnvPrefix("REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("hot_use_frequency", defaults.HotUseFrequency)
	v.SetDefault("warm_use_frequency", defaults.WarmUseFrequency)
	v.SetDefault("hot_inactive", defaults.HotInactive)
	v.SetDefault("warm_inactive", defaults.WarmInactive)
}

// Load reads the bound viper instance into a Config, expanding the data
// path the same way the original CLI does.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.DataPath = ExpandDataPath(cfg.DataPath)
	return cfg, nil
}
