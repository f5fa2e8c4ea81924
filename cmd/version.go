package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{Version: Version, Commit: CommitSHA, BuildDate: BuildDate, GoVersion: runtime.Version()}
		if mustGetBool(cmd, "json") {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "photo-pages %s\n", info.Version)
		fmt.Fprintf(out, "  Commit: %s\n", info.Commit)
		fmt.Fprintf(out, "  Built:  %s\n", info.BuildDate)
		fmt.Fprintf(out, "  Go:     %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
