package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "secscan",
	Short: "Security scanning orchestrator",
	Long: `secscan runs semgrep, trivy, dependency-check, gitleaks and eslint security
rules against a source tree, aggregates their findings into a risk score and
writes a timestamped JSON report.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	DebugMode  bool
	configPath string
	logFormat  string

	cfg *config.Config
	// exitCode is set by commands that map their outcome onto the process status.
	exitCode = engine.ExitClean
)

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if DebugMode {
		level = "debug"
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	return logger.Setup(level, format, cfg.Log.File)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	exitCode = engine.ExitClean
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("secscan failed")
		return engine.ExitFailed
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./secscan.yaml or $SECSCAN_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}
