package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a RETS server",
		Long:  "Authenticate against the RETS login URL and display the advertised capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			reader := bufio.NewReader(cmd.InOrStdin())

			if config.LoginURL == "" {
				config.LoginURL = prompt(cmd, reader, "Login URL: ")
			}

			if config.Username == "" {
				config.Username = prompt(cmd, reader, "Username: ")
			}

			if config.Password == "" {
				config.Password = lookupPassword(config.LoginURL, config.Username)
			}

			if config.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

				bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				config.Password = string(bytePassword)

				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}

			client, store, err := newClient(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer store.Close()

			// An explicit login always runs the authentication cycle.
			client.Restore(rets.Session{})

			capabilities, err := client.Login(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}

			if save {
				err := saveLogin(config)
				if err != nil {
					return err
				}

				if config.Password != "" {
					err := savePassword(config.LoginURL, config.Username, config.Password)
					if err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
					}
				}
			}

			if outputFormat() == constants.FormatTable {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged in to %s\n", config.LoginURL)
			}

			return renderCapabilities(cmd.OutOrStdout(), capabilities)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the login URL and username in the config file and the password in the system keyring")

	return cmd
}

// saveLogin records the login URL and username. The password never goes
// to the config file.
func saveLogin(config *Config) error {
	fileConfig := loadFileConfig()
	fileConfig.LoginURL = config.LoginURL
	fileConfig.Username = config.Username

	err := saveConfigStruct(fileConfig)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return nil
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) string {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), label)

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}

	return strings.TrimSpace(line)
}
