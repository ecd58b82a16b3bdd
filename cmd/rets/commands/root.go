package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps persistent flag names to viper keys.
var flagKeys = map[string]string{
	"config":        "config",
	"login-url":     "login_url",
	"username":      "username",
	"password":      "password",
	"user-agent":    "user_agent",
	"ua-password":   "ua_password",
	"rets-version":  "rets_version",
	"session-store": "session_store",
	"session-file":  "session_file",
	"redis-addr":    "redis_addr",
	"nats-url":      "nats_url",
	"retries":       "retries",
	"output":        "output",
	"verbose":       "verbose",
}

// NewRootCommand creates the rets command with every subcommand attached.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rets",
		Short: "RETS client CLI",
		Long: `A command-line interface for RETS servers.

Logs in with HTTP Basic or Digest authentication, keeps the session between
runs and fetches COMPACT metadata.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.rets/config.yml)")
	flags.StringP("login-url", "l", "", "RETS login URL")
	flags.StringP("username", "u", "", "username for authentication")
	flags.StringP("password", "p", "", "password for authentication")
	flags.String("user-agent", "", "User-Agent header (default "+constants.DefaultUserAgent+")")
	flags.String("ua-password", "", "user agent password for RETS-UA-Authorization")
	flags.String("rets-version", "", "RETS-Version header (default "+constants.DefaultRETSVersion+")")
	flags.String("session-store", "", "session store: file, memory, redis, nats or none (default file)")
	flags.String("session-file", "", "session file for the file store (default $HOME/.rets/session.yml)")
	flags.String("redis-addr", "", "Redis address for the redis session store")
	flags.String("nats-url", "", "NATS URL for the nats session store")
	flags.Int("retries", 0, "transport retries on connection errors and 5xx responses")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewMetadataCommand())
	rootCmd.AddCommand(NewRequestCommand())
	rootCmd.AddCommand(NewSessionCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

func initConfig(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		err := viper.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name))
		if err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		viper.AddConfigPath(filepath.Join(home, constants.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("RETS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}

	return nil
}
