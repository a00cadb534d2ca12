package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/report"
)

var complianceCmd = &cobra.Command{
	Use:   "compliance [standard]",
	Short: "List compliance standards or evaluate one against a report",
	Long: `Without arguments, lists the loaded compliance standards. With a standard,
prints each control's verdict computed from the tool results of a report
(the latest one in the reports directory unless --report is given).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comp := engine.NewComplianceEngine()
		profilesDir, _ := cmd.Flags().GetString("profiles")
		if profilesDir == "" {
			profilesDir = cfg.ProfilesDir
		}
		if profilesDir != "" {
			if _, err := comp.LoadProfiles(profilesDir); err != nil {
				return err
			}
		}

		if len(args) == 0 {
			fmt.Printf("Available Compliance Standards: %s\n", strings.Join(comp.ListStandards(), ", "))
			return nil
		}

		profile, ok := comp.GetProfile(args[0])
		if !ok {
			return fmt.Errorf("standard '%s' not found. Available: %s", args[0], strings.Join(comp.ListStandards(), ", "))
		}

		path, _ := cmd.Flags().GetString("report")
		if path == "" {
			paths, err := report.List(cfg.ReportsDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no reports in %s; run 'secscan scan' first", cfg.ReportsDir)
			}
			path = paths[len(paths)-1]
		}
		rep, err := report.Load(path)
		if err != nil {
			return err
		}

		results := make([]engine.ToolResult, 0, len(rep.ToolResults))
		for _, r := range rep.ToolResults {
			results = append(results, r)
		}
		verdicts := comp.Evaluate(results)[profile.Standard]

		controlID, _ := cmd.Flags().GetString("control")
		text, err := complianceText(profile, verdicts, controlID)
		if err != nil {
			return err
		}
		fmt.Printf("Report: %s\n\n%s\n", path, text)
		return nil
	},
}

func complianceText(profile engine.Profile, verdicts map[string]engine.Verdict, controlID string) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compliance Results for %s:\n\n", profile.Standard))

	counts := make(map[engine.Verdict]int)
	ran := 0
	for _, control := range profile.Controls {
		if controlID != "" && control.ID != controlID {
			continue
		}
		ran++
		v := verdicts[control.ID]
		counts[v]++

		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", v, control.ID, control.Name))
		if v != engine.VerdictPass && control.Signal != nil {
			sb.WriteString(fmt.Sprintf("  Signal: %s %s > 0\n", control.Signal.Tool, control.Signal.Metric))
		}
	}

	if ran == 0 {
		return "", errors.New("no controls found matching ID '" + controlID + "' in standard '" + profile.Standard + "'")
	}

	sb.WriteString(fmt.Sprintf("\nSummary: %d Controls, %d Passed, %d Review Required, %d Failed",
		ran, counts[engine.VerdictPass], counts[engine.VerdictReviewRequired], counts[engine.VerdictFail]))
	return sb.String(), nil
}

func init() {
	complianceCmd.Flags().String("report", "", "Report file to evaluate")
	complianceCmd.Flags().String("control", "", "Only show this control")
	complianceCmd.Flags().String("profiles", "", "Directory of additional compliance profiles (YAML)")
	rootCmd.AddCommand(complianceCmd)
}
