package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/report"
)

var diffCmd = &cobra.Command{
	Use:   "diff [baseline] [current]",
	Short: "Compare two reports (defaults to the two latest)",
	Long: `Compares a baseline report with a newer one and lists changed counters,
tool statuses and compliance verdicts. Exits 1 when the score got worse.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) < 2 {
			all, err := report.List(cfg.ReportsDir)
			if err != nil {
				return err
			}
			if paths, err = diffPaths(args, all); err != nil {
				return fmt.Errorf("%w in %s", err, cfg.ReportsDir)
			}
		}

		baseline, err := report.Load(paths[0])
		if err != nil {
			return err
		}
		current, err := report.Load(paths[1])
		if err != nil {
			return err
		}

		d := report.Compare(baseline, current)
		printDelta(os.Stdout, paths[0], paths[1], d)
		if d.Regressed() {
			exitCode = 1
		}
		return nil
	},
}

// diffPaths fills in missing diff operands from the listed reports, oldest
// first. A lone argument naming the latest report is compared against the
// one before it.
func diffPaths(args, all []string) ([]string, error) {
	n := len(all)
	switch {
	case len(args) >= 2:
		return args[:2], nil
	case len(args) == 1 && n > 0 && !sameFile(args[0], all[n-1]):
		return []string{args[0], all[n-1]}, nil
	case len(args) == 1 && n >= 2:
		return all[n-2:], nil
	case len(args) == 0 && n >= 2:
		return all[n-2:], nil
	}
	return nil, fmt.Errorf("need two reports to compare, found %d", n)
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func printDelta(w io.Writer, from, to string, d report.Delta) {
	fmt.Fprintf(w, "Report Comparison (%s -> %s):\n", from, to)
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Score: %d -> %d\n", d.ScoreBefore, d.ScoreAfter)
	fmt.Fprintf(w, "Risk:  %s -> %s\n\n", d.RiskBefore, d.RiskAfter)

	fmt.Fprintf(w, "CHANGED COUNTERS: %d\n", len(d.Counters))
	for _, c := range d.Counters {
		mark := "-"
		if c.Current > c.Baseline {
			mark = "+"
		}
		fmt.Fprintf(w, "  [%s] %s.%s: %d -> %d\n", mark, c.Tool, c.Counter, c.Baseline, c.Current)
	}

	if len(d.StatusChanges) > 0 {
		fmt.Fprintf(w, "\nTOOL STATUS CHANGES: %d\n", len(d.StatusChanges))
		tools := make([]string, 0, len(d.StatusChanges))
		for t := range d.StatusChanges {
			tools = append(tools, string(t))
		}
		sort.Strings(tools)
		for _, t := range tools {
			s := d.StatusChanges[engine.ToolName(t)]
			fmt.Fprintf(w, "  %s: %s -> %s\n", t, orNone(string(s[0])), orNone(string(s[1])))
		}
	}

	if len(d.VerdictChanges) > 0 {
		fmt.Fprintln(w, "\nCOMPLIANCE CHANGES:")
		stds := make([]string, 0, len(d.VerdictChanges))
		for s := range d.VerdictChanges {
			stds = append(stds, s)
		}
		sort.Strings(stds)
		for _, std := range stds {
			ids := make([]string, 0, len(d.VerdictChanges[std]))
			for id := range d.VerdictChanges[std] {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				v := d.VerdictChanges[std][id]
				fmt.Fprintf(w, "  %s/%s: %s -> %s\n", std, id, orNone(string(v[0])), orNone(string(v[1])))
			}
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
