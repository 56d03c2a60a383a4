// Command sparql-conform runs a SPARQL engine through the W3C conformance
// test suite and writes a compressed result archive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/config"
	"github.com/sparql-conformance/harness/engine"
	"github.com/sparql-conformance/harness/manifest"
	"github.com/sparql-conformance/harness/suite"
)

var (
	configPath string
	runName    string
	resultsDir string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "sparql-conform",
		Short:         "SPARQL conformance test harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full test suite and write the result archive",
		RunE:  runSuite,
	}
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "name of this run (default: timestamp)")
	runCmd.Flags().StringVarP(&resultsDir, "results", "r", "results", "directory for result archives")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Start the engine per graph group and wait, for manual inspection",
		RunE:  analyze,
	}

	root.AddCommand(runCmd, analyzeCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func buildSuite(name string, logger *zap.Logger) (*suite.Suite, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, engine.OSRunner{}, logger)
	if err != nil {
		return nil, err
	}
	tests, err := manifest.Load(
		filepath.Join(cfg.TestSuiteDir, "manifest-all.ttl"),
		manifest.Filter{Exclude: cfg.Exclude, Include: cfg.Include},
	)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded tests", zap.Int("count", len(tests)))
	return suite.New(name, cfg, eng, logger, tests), nil
}

func runSuite(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	name := runName
	if name == "" {
		name = time.Now().Format("2006-01-02T15-04-05")
	}
	s, err := buildSuite(name, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx); err != nil {
		logger.Warn("run ended early", zap.Error(err))
	}
	path, err := s.WriteReport(resultsDir)
	if err != nil {
		return err
	}
	passed, failed, passedFailed := s.Counts()
	logger.Info("run complete",
		zap.String("archive", path),
		zap.Int("passed", passed),
		zap.Int("failed", failed),
		zap.Int("intended", passedFailed))
	return nil
}

func analyze(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := buildSuite("analyze", logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Analyze(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
