package main

import (
	"fmt"
	"os"

	"carcare/internal/config"
	"carcare/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "carcare",
	Short: "Suggest likely causes for car symptoms",
	Long: `carcare turns a plain-language description of a car symptom into a
likely problem, a suggested action, a severity and a confidence score.

Diagnosis runs against a local keyword rule table by default, or against a
hosted model when diagnosis_backend is anthropic, openai or gemini.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err = logging.New(level, cfg.LogFormat)
	if err != nil {
		return cfg, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (or set CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	diagnoseCmd.Flags().StringVarP(&diagnoseFile, "file", "f", "", "Read one description per line from a file (- for stdin)")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Print results as JSON")
	diagnoseCmd.Flags().StringVar(&diagnoseBackend, "backend", "", "Override diagnosis_backend (rules, anthropic, openai, gemini)")

	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "Print the rule table as JSON")

	telemetryCmd.Flags().BoolVar(&telemetryJSON, "json", false, "Print alerts as JSON")
	telemetryCmd.Flags().BoolVar(&telemetryFailOnCritical, "fail-on-critical", false, "Exit non-zero when any alert is critical")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(telemetryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
