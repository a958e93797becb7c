package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is overridden with -ldflags "-X .../cmd.version=v1.2.3".
var version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		v, commit := buildVersion()
		if commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "celltutor %s (%s)\n", v, commit)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "celltutor", v)
	},
}

// buildVersion falls back to module and VCS info embedded by go build
// when no version was injected.
func buildVersion() (string, string) {
	v := version
	info, ok := debug.ReadBuildInfo()
	if !ok {
		if v == "" {
			v = "(devel)"
		}
		return v, ""
	}
	if v == "" {
		v = info.Main.Version
	}
	var commit string
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			commit = s.Value[:12]
		}
	}
	if v == "" {
		v = "(devel)"
	}
	return v, commit
}
