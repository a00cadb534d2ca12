package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	ESLintTimeout      = 180 * time.Second
	eslintConfigFile   = ".eslintrc.security.json"
	eslintSecurityRule = "security/"
	eslintSamples      = 5
)

var eslintSecurityRules = []string{
	"detect-buffer-noassert",
	"detect-child-process",
	"detect-disable-mustache-escape",
	"detect-eval-with-expression",
	"detect-new-buffer",
	"detect-no-csrf-before-method-override",
	"detect-non-literal-fs-filename",
	"detect-non-literal-regexp",
	"detect-non-literal-require",
	"detect-object-injection",
	"detect-possible-timing-attacks",
	"detect-pseudoRandomBytes",
	"detect-unsafe-regex",
}

// ESLintSecurityWrapper lints the frontend with eslint-plugin-security.
// It is skipped when the frontend directory does not exist.
type ESLintSecurityWrapper struct {
	Runtime
	SourceDir   string
	FrontendDir string
	MaxDuration time.Duration
}

func (e *ESLintSecurityWrapper) Name() engine.ToolName { return engine.ToolESLintSecurity }

func (e *ESLintSecurityWrapper) Description() string {
	return "Lints the frontend sources with eslint-plugin-security rules."
}

func (e *ESLintSecurityWrapper) Binary() string { return "npx" }

func (e *ESLintSecurityWrapper) Timeout() time.Duration { return timeoutOr(e.MaxDuration, ESLintTimeout) }

func (e *ESLintSecurityWrapper) frontendPath() string {
	return filepath.Join(e.SourceDir, e.FrontendDir)
}

func eslintConfig() map[string]any {
	rules := make(map[string]string, len(eslintSecurityRules))
	for _, r := range eslintSecurityRules {
		rules[eslintSecurityRule+r] = "error"
	}
	return map[string]any{
		"extends": []string{"eslint:recommended"},
		"plugins": []string{"security"},
		"rules":   rules,
		"parserOptions": map[string]any{
			"ecmaVersion": 2022,
			"sourceType":  "module",
		},
		"env": map[string]bool{
			"node":    true,
			"browser": true,
			"es6":     true,
		},
	}
}

// writeConfig drops the transient rule set into the frontend directory.
func (e *ESLintSecurityWrapper) writeConfig(dir string) (string, error) {
	data, err := json.MarshalIndent(eslintConfig(), "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, eslintConfigFile)
	return path, os.WriteFile(path, data, 0o644)
}

func (e *ESLintSecurityWrapper) Scan(ctx context.Context) engine.ToolResult {
	log := e.logger(e.Name())

	dir := e.frontendPath()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.WithField("dir", dir).Info("Frontend directory not found, skipping eslint security scan")
		return engine.ToolResult{Tool: e.Name(), Status: engine.StatusSkipped, Reason: "Frontend directory not found"}
	}

	log.Info("Starting eslint security scan")
	cfgPath, err := e.writeConfig(dir)
	if err != nil {
		return failure(e.Name(), invocationError("eslint", "write config", err))
	}
	defer os.Remove(cfgPath)

	// eslint exits 1 on lint errors; stdout carries the result either way.
	out, err := e.invoker().Invoke(ctx, Command{
		Name: e.Binary(),
		Args: []string{
			"eslint",
			"--config", cfgPath,
			"--format", "json",
			filepath.Join(dir, "**/*.{js,jsx,ts,tsx}"),
		},
		Dir:     dir,
		Timeout: e.Timeout(),
	})
	if err != nil {
		log.WithError(err).Error("eslint security scan failed")
		return failure(e.Name(), err)
	}

	res := NormalizeESLint(out)
	res.ReturnCode = exitCode(out)
	return res
}

type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID string `json:"ruleId"`
	} `json:"messages"`
}

// NormalizeESLint counts lint messages and those raised by security rules.
// Empty output is a clean run.
func NormalizeESLint(out Output) engine.ToolResult {
	res := engine.ToolResult{
		Tool:   engine.ToolESLintSecurity,
		Status: engine.StatusSuccess,
		Counts: map[string]int{
			engine.CountTotalIssues:    0,
			engine.CountSecurityIssues: 0,
			engine.CountFilesScanned:   0,
		},
	}
	if len(bytes.TrimSpace(out.Stdout)) == 0 {
		return res
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(out.Stdout, &raw); err != nil {
		return failure(engine.ToolESLintSecurity, parseError(engine.ToolESLintSecurity, err))
	}

	total, security := 0, 0
	for _, r := range raw {
		var f eslintFile
		if err := json.Unmarshal(r, &f); err != nil {
			return failure(engine.ToolESLintSecurity, parseError(engine.ToolESLintSecurity, err))
		}
		total += len(f.Messages)
		for _, m := range f.Messages {
			if strings.HasPrefix(m.RuleID, eslintSecurityRule) {
				security++
			}
		}
	}

	res.Counts[engine.CountTotalIssues] = total
	res.Counts[engine.CountSecurityIssues] = security
	res.Counts[engine.CountFilesScanned] = len(raw)
	res.SampleFindings = firstN(raw, eslintSamples)
	return res
}
