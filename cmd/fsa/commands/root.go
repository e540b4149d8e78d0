package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/casestudy"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/config"
	"github.com/wonny/finlab/pkg/logger"
)

var (
	// Global flags
	outputFormat   string
	thresholdsFile string
	sectorFlag     string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fsa",
	Short: "finlab - financial statement analysis engine",
	Long: `finlab Unified CLI

Ratios, DuPont decomposition, cash-flow reconstruction, diagnosis and
stress scenarios over balance sheets and income statements.

Usage:
  go run ./cmd/fsa [command]

Examples:
  go run ./cmd/fsa cases list
  go run ./cmd/fsa analyze --case ibm-sa
  go run ./cmd/fsa cashflow --case tech-solutions
  go run ./cmd/fsa stress --case aerotech --ebitda -0.1,-0.2,-0.3
  go run ./cmd/fsa api`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "text" && outputFormat != "json" {
			return fmt.Errorf("--output must be text or json, got %q", outputFormat)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text|json)")
	rootCmd.PersistentFlags().StringVar(&thresholdsFile, "thresholds", "", "threshold table YAML (default: THRESHOLDS_FILE or the embedded canonical table)")
	rootCmd.PersistentFlags().StringVar(&sectorFlag, "sector", "", "sector for peer comparison (default: the case's sector or DEFAULT_SECTOR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// =============================================================================
// Wiring
// =============================================================================

// engine every component a command may need, built from config
type engine struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *thresholds.Store
	cases     *casestudy.Registry
	simulator *scenario.Simulator
	analyzer  *analysis.Analyzer
}

// newEngine loads config and builds the components.
// CLI logs go to stderr so --output json stays parseable.
func newEngine() (*engine, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if thresholdsFile != "" {
		cfg.Analysis.ThresholdsFile = thresholdsFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}

	// 2. Initialize logger
	log := logger.NewWithWriter(cfg, os.Stderr)

	// 3. Threshold table
	store, err := thresholds.NewStore(cfg.Analysis.ThresholdsFile)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	// 4. Case studies
	cases, err := casestudy.NewRegistry(cfg.Analysis.CasesDir)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}

	// 5. Engines
	sim := scenario.NewSimulator(store, log, cfg.Analysis.BatchWorkers)
	analyzer := analysis.NewAnalyzer(store, sim, log).WithDefaultSector(cfg.Analysis.DefaultSector)

	log.WithFields(map[string]interface{}{
		"table_hash": store.Hash(),
		"cases":      len(cases.List()),
	}).Debug("engine initialized")

	return &engine{
		cfg:       cfg,
		log:       log,
		store:     store,
		cases:     cases,
		simulator: sim,
		analyzer:  analyzer,
	}, nil
}

// loadCase --case ID from the registry, or --file path to a case YAML
func (e *engine) loadCase(id, file string) (*casestudy.Case, error) {
	switch {
	case file != "":
		return casestudy.LoadFile(file)
	case id != "":
		return e.cases.Get(id)
	}
	return nil, fmt.Errorf("one of --case or --file is required")
}

// sectorFor --sector overrides the case's own sector
func sectorFor(c *casestudy.Case) string {
	if sectorFlag != "" {
		return sectorFlag
	}
	return c.Sector
}
