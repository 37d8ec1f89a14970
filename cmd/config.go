package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/pivotscribe/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set PivotScribe configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ensureConfig()
		if c.Workbook != "" {
			fmt.Printf("workbook: %s\n", c.Workbook)
		}
		for _, s := range c.Sheets {
			fmt.Printf("sheet: %s = %v\n", s.Name, s.Slicers)
		}
		fmt.Printf("results_dir: %s\n", c.ResultsDir)
		fmt.Printf("recorder: %s\n", c.Recorder)
		if c.PostgresDSN != "" {
			fmt.Printf("postgres_dsn: %s\n", mask(c.PostgresDSN))
		}
		fmt.Printf("api_key: %s\n", mask(c.APIKey))
		fmt.Printf("default_model: %s\n", c.DefaultModel)
		if c.DefaultProvider != "" {
			fmt.Printf("default_provider: %s\n", c.DefaultProvider)
		}
		fmt.Printf("max_tokens: %d\n", c.MaxTokens)
		fmt.Printf("temperature: %.3f\n", c.Temperature)
		fmt.Printf("confirm_threshold: %d\n", c.ConfirmThreshold)
		if c.MaxCombos > 0 {
			fmt.Printf("max_combos: %d\n", c.MaxCombos)
		}
		fmt.Printf("workers: %d\n", c.Workers)
		if c.OllamaHost != "" {
			fmt.Printf("ollama_host: %s\n", c.OllamaHost)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := ensureConfig()
		switch key {
		case "workbook":
			c.Workbook = val
		case "results_dir":
			c.ResultsDir = val
		case "recorder":
			switch val {
			case "file", "postgres":
				c.Recorder = val
			default:
				return fmt.Errorf("invalid recorder: %s (use file or postgres)", val)
			}
		case "postgres_dsn":
			c.PostgresDSN = val
		case "api_key":
			c.APIKey = val
		case "default_model":
			c.DefaultModel = val
		case "default_provider":
			switch val {
			case "openrouter", "OpenRouter", "OPENROUTER":
				c.DefaultProvider = "openrouter"
			case "ollama", "local", "Ollama", "LOCAL":
				c.DefaultProvider = "ollama"
			default:
				return fmt.Errorf("invalid default_provider: %s (use openrouter or ollama)", val)
			}
		case "max_tokens":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for max_tokens: %w", err)
			}
			c.MaxTokens = i
		case "temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for temperature: %w", err)
			}
			c.Temperature = f
		case "confirm_threshold":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for confirm_threshold: %v", val)
			}
			c.ConfirmThreshold = i
		case "max_combos":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_combos: %v", val)
			}
			c.MaxCombos = i
		case "workers":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for workers: %v", val)
			}
			c.Workers = i
		case "ollama_host":
			c.OllamaHost = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
