package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at release time via -ldflags; the defaults identify a source build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Show the reclaim version along with the commit, build date, and target platform.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString renders the build identity as a two-line block.
func versionString() string {
	return fmt.Sprintf("reclaim %s (commit %s, built %s)\n%s %s/%s",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
