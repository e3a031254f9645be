package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavadmin/pavadmin/internal/config"
	"github.com/pavadmin/pavadmin/internal/rcon"
)

var (
	cfgFile string
	debug   bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pavadmin",
	Short: "Remote administration for a game server over RCON",
	Long: `pavadmin keeps an authenticated RCON session open to a game server and
exposes its administrative commands over HTTP, or runs single commands from
the shell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		if cmd == versionCmd {
			return nil
		}
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func rconConfig(c *config.Config) rcon.Config {
	return rcon.Config{
		Host:           c.RCon.Host,
		Port:           c.RCon.Port,
		Password:       c.RCon.Password,
		CommandTimeout: c.RCon.CommandTimeout,
		QuietPeriod:    c.RCon.QuietPeriod,
		DialTimeout:    c.RCon.DialTimeout,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "human-readable debug logging")
}
