package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/secscan/pkg/advisor"
	"github.com/user/secscan/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup of the AI advisor",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if err := runSetup(cmd.Context(), os.Stdin, os.Stdout, cfg, listGeminiModels); err != nil {
			return err
		}
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

type modelLister func(ctx context.Context, apiKey string) ([]string, error)

func listGeminiModels(ctx context.Context, apiKey string) ([]string, error) {
	p, err := advisor.NewGeminiProvider(ctx, apiKey, "")
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ListModels(ctx)
}

// runSetup asks for an API key and a model and enables the advisor in c.
func runSetup(ctx context.Context, in io.Reader, out io.Writer, c *config.Config, list modelLister) error {
	scanner := bufio.NewScanner(in)
	readLine := func() string {
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Fprintln(out, "secscan advisor setup")
	fmt.Fprintln(out, "---------------------")

	fmt.Fprintln(out, "Step 1: Enter API Key for gemini")
	fmt.Fprint(out, "> ")
	apiKey := readLine()
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	fmt.Fprintln(out, "\nStep 2: Validating key and fetching available models...")
	var selectedModel string
	models, err := list(ctx, apiKey)
	if err != nil || len(models) == 0 {
		if err != nil {
			fmt.Fprintf(out, "Warning: Could not fetch models from API: %v\n", err)
		}
		fmt.Fprintf(out, "Enter model name (empty for %s):\n> ", advisor.DefaultGeminiModel)
		selectedModel = readLine()
		if selectedModel == "" {
			selectedModel = advisor.DefaultGeminiModel
		}
	} else {
		for i, m := range models {
			fmt.Fprintf(out, "%d. %s\n", i+1, m)
		}
		fmt.Fprint(out, "Select Model (number) > ")
		selIdx, err := strconv.Atoi(readLine())
		if err != nil || selIdx < 1 || selIdx > len(models) {
			fmt.Fprintln(out, "Invalid selection. Using first available model.")
			selectedModel = models[0]
		} else {
			selectedModel = models[selIdx-1]
		}
	}

	c.Advisor.Enabled = true
	c.Advisor.Provider = "gemini"
	c.Advisor.Model = selectedModel
	c.Advisor.APIKey = apiKey

	fmt.Fprintf(out, "Provider: %s\nModel:    %s\n", c.Advisor.Provider, c.Advisor.Model)
	return nil
}

func init() {
	configCmd.AddCommand(setupCmd)
}
