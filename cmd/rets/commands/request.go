package commands

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/spf13/cobra"
)

// NewRequestCommand creates the request command.
func NewRequestCommand() *cobra.Command {
	var (
		headers  []string
		dataFile string
	)

	cmd := &cobra.Command{
		Use:   "request PATH [BODY]",
		Short: "POST a raw request with the session headers",
		Long: `POST BODY to PATH on the login server with the session headers attached.

Logs in first when no session is stored. PATH may also be a capability name
such as Search.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			body, err := requestBody(args, dataFile)
			if err != nil {
				return err
			}

			client, store, err := newClient(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				capability, err := client.Capability(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("failed to resolve capability %s: %w", path, err)
				}

				path = capability.EscapedPath()
			} else {
				_, err = client.Login(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to login: %w", err)
				}
			}

			response, err := client.Request(cmd.Context(), path, body, extra)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}

			format := outputFormat()
			if format != constants.FormatTable {
				return encodeStructured(cmd.OutOrStdout(), format, map[string]interface{}{
					"status":  response.StatusCode,
					"headers": response.Headers,
					"body":    string(response.Body),
				})
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", response.StatusCode)
			_, err = cmd.OutOrStdout().Write(response.Body)

			return err
		},
	}

	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra request header 'Name: Value' (repeatable)")
	cmd.Flags().StringVarP(&dataFile, "data-file", "d", "", "read the request body from a file")

	return cmd
}

func parseHeaders(raw []string) (http.Header, error) {
	headers := http.Header{}

	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeaderFormat, entry)
		}

		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return headers, nil
}

func requestBody(args []string, dataFile string) ([]byte, error) {
	if dataFile != "" {
		// #nosec G304
		data, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}

		return data, nil
	}

	if len(args) > 1 {
		return []byte(args[1]), nil
	}

	return nil, nil
}
