package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configFileName = "config.yml"

// Config represents the CLI configuration.
type Config struct {
	LoginURL     string `json:"login_url,omitempty"     yaml:"login_url,omitempty"`
	Username     string `json:"username,omitempty"      yaml:"username,omitempty"`
	Password     string `json:"password,omitempty"      yaml:"password,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"    yaml:"user_agent,omitempty"`
	UAPassword   string `json:"ua_password,omitempty"   yaml:"ua_password,omitempty"`
	RETSVersion  string `json:"rets_version,omitempty"  yaml:"rets_version,omitempty"`
	SessionStore string `json:"session_store,omitempty" yaml:"session_store,omitempty"`
	SessionFile  string `json:"session_file,omitempty"  yaml:"session_file,omitempty"`
	RedisAddr    string `json:"redis_addr,omitempty"    yaml:"redis_addr,omitempty"`
	NATSURL      string `json:"nats_url,omitempty"      yaml:"nats_url,omitempty"`
	Output       string `json:"output,omitempty"        yaml:"output,omitempty"`
}

// ConfigKeys lists the keys accepted by 'config set' and 'config unset', in
// display order.
func ConfigKeys() []string {
	return []string{
		"login_url",
		"username",
		"password",
		"user_agent",
		"ua_password",
		"rets_version",
		"session_store",
		"session_file",
		"redis_addr",
		"nats_url",
		"output",
	}
}

// field returns a pointer to the value stored under key.
func (c *Config) field(key string) (*string, bool) {
	fields := map[string]*string{
		"login_url":     &c.LoginURL,
		"username":      &c.Username,
		"password":      &c.Password,
		"user_agent":    &c.UserAgent,
		"ua_password":   &c.UAPassword,
		"rets_version":  &c.RETSVersion,
		"session_store": &c.SessionStore,
		"session_file":  &c.SessionFile,
		"redis_addr":    &c.RedisAddr,
		"nats_url":      &c.NATSURL,
		"output":        &c.Output,
	}

	value, ok := fields[key]

	return value, ok
}

// masked returns a copy safe to display.
func (c *Config) masked() Config {
	masked := *c
	masked.Password = maskSecret(c.Password)
	masked.UAPassword = maskSecret(c.UAPassword)

	return masked
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage RETS CLI configuration stored in $HOME/.rets/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig().masked()

			format := outputFormat()
			if format != constants.FormatTable {
				return encodeStructured(cmd.OutOrStdout(), format, config)
			}

			rows := make([][2]string, 0, len(ConfigKeys()))
			for _, key := range ConfigKeys() {
				value, _ := config.field(key)
				rows = append(rows, [2]string{key, valueOrNA(*value)})
			}

			return renderPropertyTable(cmd.OutOrStdout(), rows)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: login_url, username, password, user_agent, ua_password, rets_version, session_store, session_file, redis_addr, nats_url, output",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			config := loadFileConfig()

			target, ok := config.field(key)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
			}

			*target = value

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			displayed := value
			if key == "password" || key == "ua_password" {
				displayed = maskSecret(value)
			}

			return outputConfigUpdateResult(cmd, "Set", key, displayed)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			config := loadFileConfig()

			target, ok := config.field(key)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
			}

			*target = ""

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Unset", key, "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file and the password stored in the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			fileConfig := loadFileConfig()

			err = deletePassword(fileConfig.LoginURL, fileConfig.Username)
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Cleared", "all configuration", "")
		},
	}
}

// loadConfig returns the effective configuration: flags, environment and
// config file as merged by viper, with the keyring password as fallback.
func loadConfig() *Config {
	config := &Config{}

	for _, key := range ConfigKeys() {
		target, _ := config.field(key)
		*target = viper.GetString(key)
	}

	if config.Password == "" {
		config.Password = lookupPassword(config.LoginURL, config.Username)
	}

	return config
}

// loadFileConfig returns only what the config file holds, so that flags and
// environment variables are never written back.
func loadFileConfig() *Config {
	config := &Config{}

	configFile, err := configFilePath()
	if err != nil {
		return config
	}

	// configFile is built from the user's home directory or the --config flag.
	// #nosec G304
	data, err := os.ReadFile(configFile)
	if err != nil {
		return config
	}

	_ = yaml.Unmarshal(data, config)

	return config
}

// configFilePath resolves the config file: --config, the file viper read,
// or $HOME/.rets/config.yml.
func configFilePath() (string, error) {
	if configFile := viper.GetString("config"); configFile != "" {
		return configFile, nil
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, configFileName), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	format := outputFormat()
	if format != constants.FormatTable {
		return encodeStructured(cmd.OutOrStdout(), format, result)
	}

	rows := [][2]string{{"Action", action}, {"Key", key}}
	if value != "" {
		rows = append(rows, [2]string{"Value", value})
	}

	return renderPropertyTable(cmd.OutOrStdout(), rows)
}
