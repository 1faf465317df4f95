package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nhle/giftcard-console/internal/model"
)

var (
	cfgFile     string
	metricsAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "giftcard-console",
		Short: "Terminal console for gift card marketplace notifications and activity",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newLoginCmd(), newLogoutCmd(), newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	model.ApplyDefaults(viper.GetViper())
	defaults := viper.GetViper()

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file (default "+model.DefaultConfigPath()+")")
	cmd.PersistentFlags().String("api-url", defaults.GetString("api.base_url"), "REST API base URL")
	cmd.PersistentFlags().String("socket-url", defaults.GetString("socket.url"), "Realtime socket server URL")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file", defaults.GetString("log.file"), "Log file path")
	cmd.PersistentFlags().String("teardown", defaults.GetString("realtime.teardown"), "Connection teardown mode (refcount, eager)")
	cmd.PersistentFlags().String("theme", defaults.GetString("display.theme"), "Color theme (default, mono)")
	cmd.PersistentFlags().Bool("desktop", defaults.GetBool("notifications.desktop"), "Emit desktop notifications for pushed items")
	cmd.PersistentFlags().String("snapshot-path", defaults.GetString("cache.snapshot_path"), "SQLite file for cache snapshots")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	bindFlag(cmd, "api.base_url", "api-url")
	bindFlag(cmd, "socket.url", "socket-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.file", "log-file")
	bindFlag(cmd, "realtime.teardown", "teardown")
	bindFlag(cmd, "display.theme", "theme")
	bindFlag(cmd, "notifications.desktop", "desktop")
	bindFlag(cmd, "cache.snapshot_path", "snapshot-path")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	path := cfgFile
	if path == "" {
		path = model.DefaultConfigPath()
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		missing := errors.As(err, &configNotFound) || errors.As(err, &pathErr)
		if !missing || cfgFile != "" {
			return err
		}
	}

	return nil
}

func loadConfig() (*model.AppConfig, error) {
	return model.FromViper(viper.GetViper())
}
