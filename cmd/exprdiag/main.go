// Command exprdiag diagnoses why expression prerequisites rarely trigger.
package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/config"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/logging"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose        bool
	configPath     string
	emotionsPath   string
	sexualPath     string
	regimePath     string
	cfg            config.Config
	logger         *zap.Logger
	diagnosticsSvc *diagnostics.Service
)

// #region root
var rootCmd = &cobra.Command{
	Use:   "exprdiag",
	Short: "Feasibility diagnostics for expression prerequisites",
	Long: `exprdiag samples psychological states, evaluates an expression's
prerequisite tree over them and explains what blocks it: ranked blockers,
exact axis-only reachability, prototype fit and evidence-backed
recommendations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&emotionsPath, "emotions", "", "extra emotion lookup table (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&sexualPath, "sexual", "", "extra sexual-state lookup table (JSON or YAML)")

	rootCmd.AddCommand(runCmd, fitCmd, snapshotsCmd, replayCmd, serveCmd, axesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion root

// #region helpers
// service builds the diagnostics facade from the loaded config, once.
func service() (*diagnostics.Service, error) {
	if diagnosticsSvc != nil {
		return diagnosticsSvc, nil
	}
	reg, err := prototype.Default(axis.NewModel())
	if err != nil {
		return nil, fmt.Errorf("load prototypes: %w", err)
	}
	for _, extra := range []struct {
		path string
		typ  prototype.Type
	}{
		{emotionsPath, prototype.TypeEmotion},
		{sexualPath, prototype.TypeSexual},
	} {
		if extra.path == "" {
			continue
		}
		if err := reg.LoadFile(extra.path, extra.typ); err != nil {
			return nil, err
		}
	}
	logger.Debug("prototypes loaded", zap.Int("count", reg.Len()))
	diagnosticsSvc = diagnostics.NewService(cfg.Diagnostics(), reg, logger)
	return diagnosticsSvc, nil
}

func loadRegime() (regime.Definition, error) {
	if regimePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(regimePath)
	if err != nil {
		return nil, fmt.Errorf("read regime %s: %w", regimePath, err)
	}
	return regime.Parse(data)
}

func loadExpression(path string) (expression.Definition, error) {
	return expression.LoadDefinition(path)
}

// #endregion helpers
