package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/wrappers"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the security tools, their settings and binary availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tENABLED\tTIMEOUT\tBINARY\tDESCRIPTION")

		opts := wrappers.Options{
			SourceDir:   cfg.SourceDir,
			ReportsDir:  cfg.ReportsDir,
			Project:     cfg.ProjectName,
			FrontendDir: cfg.FrontendDir,
			Thresholds:  cfg.Thresholds(),
			Log:         logrus.NewEntry(logrus.StandardLogger()),
		}
		for _, name := range engine.AllTools {
			s, err := wrappers.New(name, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", name, cfg.ToolEnabled(name), s.Timeout(), binaryStatus(s.Binary()), s.Description())
		}
		return w.Flush()
	},
}

func binaryStatus(bin string) string {
	path, err := exec.LookPath(bin)
	if err != nil {
		return bin + " (missing)"
	}
	return path
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
