package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// cli is the state shared by every command once the config is loaded.
type cli struct {
	cfgFile string
	envFile string
	v       *viper.Viper
	cfg     Config
	log     zerolog.Logger
	logOut  io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: newViper()}
	root := &cobra.Command{
		Use:   "clubsite",
		Short: "WarP Computer Club website",
		Long: `clubsite serves the WarP Computer Club website: the public pages,
the blog and events, visitor feedback and the admin panel.

Configuration is read from club.yaml (or --config) and CLUBSITE_* environment
variables. A .env file is loaded first when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ./club.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(c.serveCmd(), c.seedCmd(), c.adminCmd(), versionCmd())
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if err := godotenv.Load(c.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	if err := readConfig(c.v, c.cfgFile); err != nil {
		return err
	}
	cfg, err := decodeConfig(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.logOut == nil {
		c.logOut = cmd.ErrOrStderr()
	}
	c.log = newLogger(cfg.Env, cfg.LogLevel, c.logOut)
	if used := c.v.ConfigFileUsed(); used != "" {
		c.log.Debug().Str("file", used).Msg("using config file")
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clubsite version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clubsite %s\n", version)
		},
	}
}
