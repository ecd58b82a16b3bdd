package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/LeadsPlus/rets/pkg/retsclient"
	"github.com/spf13/cobra"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored session",
		Long:  "Inspect or remove the session stored for the configured login URL",
	}

	cmd.AddCommand(newSessionShowCommand())
	cmd.AddCommand(newSessionClearCommand())

	return cmd
}

func newSessionShowCommand() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.LoginURL == "" {
				return ErrLoginURLRequired
			}

			key, err := retsclient.SessionKey(config.LoginURL, config.Username)
			if err != nil {
				return err
			}

			store, err := newSessionStore(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := store.Load(cmd.Context(), key)
			if errors.Is(err, rets.ErrSessionNotFound) {
				return fmt.Errorf("%w for %s", ErrNoStoredSession, key)
			}

			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}

			if !showSecrets {
				session.Authorization = maskSecret(session.Authorization)
				session.Cookies = maskSecret(session.Cookies)
			}

			format := outputFormat()
			if format != constants.FormatTable {
				return encodeStructured(cmd.OutOrStdout(), format, session)
			}

			rows := [][2]string{
				{"Key", key},
				{"Authorization", valueOrNA(session.Authorization)},
				{"Cookies", valueOrNA(session.Cookies)},
			}

			for _, name := range slices.Sorted(maps.Keys(session.Capabilities)) {
				rows = append(rows, [2]string{name, session.Capabilities[name]})
			}

			return renderPropertyTable(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "display the authorization header and cookies")

	return cmd
}

func newSessionClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.LoginURL == "" {
				return ErrLoginURLRequired
			}

			key, err := retsclient.SessionKey(config.LoginURL, config.Username)
			if err != nil {
				return err
			}

			store, err := newSessionStore(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.Delete(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session for %s cleared\n", key)

			return nil
		},
	}
}
