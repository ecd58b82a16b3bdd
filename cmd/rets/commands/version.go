package commands

import (
	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the RETS CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version     string `json:"version"      yaml:"version"`
				Commit      string `json:"commit"       yaml:"commit"`
				Built       string `json:"built"        yaml:"built"`
				RETSVersion string `json:"rets_version" yaml:"rets_version"`
			}

			versionInfo := VersionInfo{
				Version:     version,
				Commit:      commit,
				Built:       date,
				RETSVersion: constants.DefaultRETSVersion,
			}

			format := outputFormat()
			if format != constants.FormatTable {
				return encodeStructured(cmd.OutOrStdout(), format, versionInfo)
			}

			return renderPropertyTable(cmd.OutOrStdout(), [][2]string{
				{"Version", version},
				{"Commit", commit},
				{"Built", date},
				{"RETS Version", constants.DefaultRETSVersion},
			})
		},
	}
}
