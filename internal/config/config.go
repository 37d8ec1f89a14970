package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SheetConfig names a worksheet and the slicer fields swept on it.
type SheetConfig struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Slicers []string `mapstructure:"slicers" yaml:"slicers,omitempty"`
}

// Global configuration structure.
type Global struct {
	Workbook    string        `mapstructure:"workbook" yaml:"workbook"`
	Sheets      []SheetConfig `mapstructure:"sheets" yaml:"sheets,omitempty"`
	ResultsDir  string        `mapstructure:"results_dir" yaml:"results_dir"`
	Recorder    string        `mapstructure:"recorder" yaml:"recorder"`
	PostgresDSN string        `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty"`

	APIKey          string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// Sweep limits
	ConfirmThreshold int `mapstructure:"confirm_threshold" yaml:"confirm_threshold"`
	MaxCombos        int `mapstructure:"max_combos" yaml:"max_combos"`
	Workers          int `mapstructure:"workers" yaml:"workers"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`
}

// ProjectFile is the per-directory workbook config consulted when no
// --config flag is given. `pivotscribe init` writes a starter copy.
const ProjectFile = "pivotscribe.yaml"

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pivotscribe/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".pivotscribe")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// Without an explicit cfgFile, a pivotscribe.yaml in the working directory
// wins over the global ~/.pivotscribe/config.yaml.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PIVOTSCRIBE")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("workbook", "")
	v.SetDefault("results_dir", "analysis_results")
	v.SetDefault("recorder", "file")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("default_model", "openai/gpt-4o")
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("max_tokens", 1500)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("confirm_threshold", 20)
	v.SetDefault("max_combos", 0)
	v.SetDefault("workers", 1)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)

	// Config file
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	default:
		if _, err := os.Stat(ProjectFile); err == nil {
			v.SetConfigFile(ProjectFile)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home dir: %w", err)
			}
			dir := filepath.Join(home, ".pivotscribe")
			_ = os.MkdirAll(dir, 0o755)
			v.AddConfigPath(dir)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
