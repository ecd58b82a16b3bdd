package commands

import (
	"fmt"
	"io"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/compact"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewMetadataCommand creates the metadata command.
func NewMetadataCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "metadata [TYPE]",
		Short: "Fetch COMPACT metadata",
		Long: `Fetch COMPACT metadata from the GetMetadata capability.

TYPE is one of SYSTEM, RESOURCE, CLASS, TABLE, LOOKUP, LOOKUP_TYPE or OBJECT.
Without TYPE every metadata type is fetched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, store, err := newClient(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				metadata, err := client.Metadata(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to fetch metadata: %w", err)
				}

				return renderAllMetadata(cmd.OutOrStdout(), metadata)
			}

			kind, err := rets.ParseMetadataType(args[0])
			if err != nil {
				return err
			}

			node, err := client.MetadataType(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("failed to fetch %s metadata: %w", kind, err)
			}

			if raw {
				_, err := io.WriteString(cmd.OutOrStdout(), node.OutputXML(true)+"\n")

				return err
			}

			document, err := compact.FromNode(node)
			if err != nil {
				return fmt.Errorf("failed to decode %s metadata: %w", kind, err)
			}

			return renderMetadata(cmd.OutOrStdout(), document.Columns(), document.All())
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the XML response instead of decoded rows")

	return cmd
}

func renderAllMetadata(writer io.Writer, metadata map[string][]compact.Row) error {
	format := outputFormat()
	if format != constants.FormatTable {
		structured := make(map[string][]map[string]string, len(metadata))
		for key, rows := range metadata {
			structured[key] = rowMaps(rows)
		}

		return encodeStructured(writer, format, structured)
	}

	for _, kind := range rets.MetadataTypes() {
		rows := metadata[kind.Key()]

		_, _ = fmt.Fprintf(writer, "%s (%d rows):\n", kind, len(rows))

		if len(rows) == 0 {
			continue
		}

		err := renderRows(writer, rowColumns(rows), rows)
		if err != nil {
			return err
		}
	}

	return nil
}

func renderMetadata(writer io.Writer, columns []string, rows []compact.Row) error {
	format := outputFormat()
	if format != constants.FormatTable {
		return encodeStructured(writer, format, rowMaps(rows))
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(writer, "No metadata rows")

		return nil
	}

	return renderRows(writer, columns, rows)
}

func renderRows(writer io.Writer, columns []string, rows []compact.Row) error {
	table := tablewriter.NewWriter(writer)

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table.Header(header...)

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, column := range columns {
			values[i], _ = row.Get(column)
		}

		_ = table.Append(values)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// rowColumns takes the column names from the first row.
func rowColumns(rows []compact.Row) []string {
	columns := make([]string, 0, len(rows[0]))
	for _, field := range rows[0] {
		columns = append(columns, field.Name)
	}

	return columns
}

func rowMaps(rows []compact.Row) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Map())
	}

	return out
}
