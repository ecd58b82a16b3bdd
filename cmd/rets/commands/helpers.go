package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/internal/sessionstore"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/LeadsPlus/rets/pkg/retsclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Errors returned by commands.
var (
	ErrLoginURLRequired    = constants.ErrNoLoginURL
	ErrUnknownConfigKey    = constants.ErrUnknownConfigKey
	ErrInvalidHeaderFormat = constants.ErrInvalidHeaderFormat
	ErrNoStoredSession     = constants.ErrNoSessionStored
)

// outputFormat returns the configured output format.
func outputFormat() string {
	switch output := strings.ToLower(viper.GetString("output")); output {
	case constants.FormatJSON, constants.FormatYAML:
		return output
	default:
		return constants.FormatTable
	}
}

// encodeStructured writes value as JSON or YAML according to format.
func encodeStructured(writer io.Writer, format string, value interface{}) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(writer)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		err = encoder.Close()
		if err != nil {
			return fmt.Errorf("failed to flush YAML: %w", err)
		}
	}

	return nil
}

// renderPropertyTable renders ordered key/value rows under a Property/Value header.
func renderPropertyTable(writer io.Writer, rows [][2]string) error {
	table := tablewriter.NewWriter(writer)
	table.Header("Property", "Value")

	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderCapabilities renders capabilities sorted by name.
func renderCapabilities(writer io.Writer, capabilities map[string]string) error {
	if outputFormat() != constants.FormatTable {
		return encodeStructured(writer, outputFormat(), capabilities)
	}

	table := tablewriter.NewWriter(writer)
	table.Header("Capability", "URL")

	for _, name := range slices.Sorted(maps.Keys(capabilities)) {
		_ = table.Append(name, capabilities[name])
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// maskSecret hides non-empty secrets.
func maskSecret(value string) string {
	if value == "" {
		return ""
	}

	return constants.MaskedSecret
}

// valueOrNA renders empty values as N/A.
func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

// newSessionStore builds the session store selected in config.
func newSessionStore(ctx context.Context, config *Config) (rets.SessionStore, error) {
	storeType := config.SessionStore
	if storeType == "" {
		storeType = constants.DefaultSessionStoreKind
	}

	storeConfig := &retsclient.StoreConfig{Type: retsclient.StoreType(storeType)}

	switch storeConfig.Type {
	case retsclient.StoreFile:
		path := config.SessionFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}

			path = sessionstore.DefaultFilePath(home)
		}

		storeConfig.File = &retsclient.FileStoreConfig{Path: path}
	case retsclient.StoreRedis:
		storeConfig.Redis = &retsclient.RedisStoreConfig{Addr: config.RedisAddr}
	case retsclient.StoreNATS:
		storeConfig.NATS = &retsclient.NATSStoreConfig{URL: config.NATSURL}
	}

	store, err := retsclient.NewStore(ctx, storeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session store: %w", storeType, err)
	}

	return store, nil
}

// newClient creates a client from the effective configuration. The caller
// closes the returned store.
func newClient(ctx context.Context, config *Config) (rets.Client, rets.SessionStore, error) {
	if config.LoginURL == "" {
		return nil, nil, ErrLoginURLRequired
	}

	store, err := newSessionStore(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	clientConfig := &rets.Config{
		LoginURL:          config.LoginURL,
		Username:          config.Username,
		Password:          config.Password,
		UserAgent:         config.UserAgent,
		UserAgentPassword: config.UAPassword,
		RETSVersion:       config.RETSVersion,
		RetryMax:          viper.GetInt("retries"),
		Store:             store,
	}

	if viper.GetBool("verbose") {
		clientConfig.Logger = NewStderrLogger()
		clientConfig.Debug = true
	}

	client, err := retsclient.New(ctx, clientConfig)
	if err != nil {
		_ = store.Close()

		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, store, nil
}
