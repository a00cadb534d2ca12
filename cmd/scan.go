package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/advisor"
	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/orchestrator"
	"github.com/user/secscan/pkg/report"
	"github.com/user/secscan/pkg/wrappers"
)

var scanFlags struct {
	source      string
	reportsDir  string
	profilesDir string
	only        []string
	skip        []string
	noAI        bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run all enabled security tools and write a report",
	Long: `Runs the enabled tools one after another, aggregates their results and
writes security-report-<timestamp>.json to the reports directory.

Exit codes: 0 clean, 1 critical issues found, 2 high risk, 3 scan failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyScanFlags(cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		o, cleanup, err := buildOrchestrator(ctx, cfg, logrus.NewEntry(logrus.StandardLogger()))
		if err != nil {
			return err
		}
		defer cleanup()

		out, err := o.Run(ctx)
		if out != nil {
			orchestrator.LogSummary(o.Log, out)
		}
		if err != nil {
			return err
		}
		exitCode = out.ExitCode
		return nil
	},
}

func applyScanFlags(c *config.Config) error {
	if scanFlags.source != "" {
		c.SourceDir = scanFlags.source
	}
	if scanFlags.reportsDir != "" {
		c.ReportsDir = scanFlags.reportsDir
	}
	if scanFlags.profilesDir != "" {
		c.ProfilesDir = scanFlags.profilesDir
	}
	if scanFlags.noAI {
		c.Advisor.Enabled = false
	}
	return selectTools(c, scanFlags.only, scanFlags.skip)
}

// selectTools narrows the enabled set: only keeps the named tools, skip
// removes them.
func selectTools(c *config.Config, only, skip []string) error {
	onlySet, err := toolSet(only)
	if err != nil {
		return err
	}
	skipSet, err := toolSet(skip)
	if err != nil {
		return err
	}
	for _, t := range engine.AllTools {
		if len(onlySet) > 0 && !onlySet[t] {
			c.SetToolEnabled(t, false)
		}
		if skipSet[t] {
			c.SetToolEnabled(t, false)
		}
	}
	return nil
}

func toolSet(names []string) (map[engine.ToolName]bool, error) {
	set := make(map[engine.ToolName]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		found := false
		for _, t := range engine.AllTools {
			if string(t) == n {
				set[t] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown tool: %s", n)
		}
	}
	return set, nil
}

func buildOrchestrator(ctx context.Context, c *config.Config, log *logrus.Entry) (*orchestrator.Orchestrator, func(), error) {
	reg, err := wrappers.NewRegistry(wrappers.Options{
		SourceDir:   c.SourceDir,
		ReportsDir:  c.ReportsDir,
		Project:     c.ProjectName,
		FrontendDir: c.FrontendDir,
		Thresholds:  c.Thresholds(),
		Log:         log,
	}, c.ToolEnabled)
	if err != nil {
		return nil, nil, err
	}

	comp := engine.NewComplianceEngine()
	if c.ProfilesDir != "" {
		loaded, err := comp.LoadProfiles(c.ProfilesDir)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("standards", loaded).Debug("Loaded compliance profiles")
	}

	o := &orchestrator.Orchestrator{
		Registry:   reg,
		Compliance: comp,
		Writer:     report.NewWriter(c.ReportsDir),
		Log:        log,
		Project:    c.ProjectName,
		SourceDir:  c.SourceDir,
	}

	cleanup := func() {}
	if c.Advisor.Enabled {
		p, err := advisor.NewProvider(ctx, c.Advisor.Provider, c.GetAPIKey(), c.Advisor.Model)
		if err != nil {
			log.WithError(err).Warn("AI advisor disabled")
		} else {
			o.Advisor = p
			cleanup = p.Close
		}
	}
	return o, cleanup, nil
}

func init() {
	scanCmd.Flags().StringVarP(&scanFlags.source, "source", "s", "", "Source directory to scan")
	scanCmd.Flags().StringVarP(&scanFlags.reportsDir, "reports-dir", "o", "", "Directory for report files")
	scanCmd.Flags().StringVar(&scanFlags.profilesDir, "profiles", "", "Directory of additional compliance profiles (YAML)")
	scanCmd.Flags().StringSliceVar(&scanFlags.only, "only", nil, "Run only these tools (comma separated)")
	scanCmd.Flags().StringSliceVar(&scanFlags.skip, "skip", nil, "Skip these tools (comma separated)")
	scanCmd.Flags().BoolVar(&scanFlags.noAI, "no-ai", false, "Do not request an AI summary")

	rootCmd.AddCommand(scanCmd)
}
