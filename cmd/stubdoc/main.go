// Command stubdoc runs documentation examples from Python stub files and
// markdown documents through an external doctest harness.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stubdoc/stubdoc/config"
	"github.com/stubdoc/stubdoc/discovery"
	"github.com/stubdoc/stubdoc/extractor"
	"github.com/stubdoc/stubdoc/extractor/graph"
	"github.com/stubdoc/stubdoc/runner"
	"github.com/stubdoc/stubdoc/synthesis"
)

type options struct {
	verbose    bool
	retain     bool
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "stubdoc",
		Short:         "Run doctests from stub files (.pyi) and documents (.md)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.retain, "keep", "k", false, "Retain generated artifacts for debugging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to stubdoc.yaml config file")
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newFileCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [root]",
		Short: "Run all documentation examples under a root directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "src"
			if len(args) > 0 {
				root = args[0]
			}
			discoverer := discovery.New()
			units, err := discoverer.Discover(cmd.Context(), root)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), opts, root, units)
		},
	}
}

func newFileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Run documentation examples from a single stub file or document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discoverer := discovery.New()
			unit, err := discoverer.DiscoverFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			root := discoverer.ProjectRoot(cmd.Context(), args[0])
			return execute(cmd.Context(), opts, root, []*graph.SourceUnit{unit})
		},
	}
}

func execute(ctx context.Context, opts *options, root string, units []*graph.SourceUnit) error {
	cfg, err := loadConfig(opts, root)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	workspace, err := synthesis.NewWorkspace(ctx, cfg.TempDir, opts.retain || cfg.Retain, logger)
	if err != nil {
		return err
	}
	defer func() { _ = workspace.Close(ctx) }()

	factory := extractor.NewFactory(cfg.Tags...)
	harness := runner.NewPytestHarness(cfg.Harness.Executable, cfg.Harness.Args, logger)
	aggregator := runner.NewAggregator(factory, synthesis.New(), harness, logger)

	result, err := aggregator.Run(ctx, units, workspace)
	if err != nil {
		return err
	}
	runner.WriteReport(os.Stdout, result, opts.verbose)
	if workspace.Retained() {
		fmt.Fprintf(os.Stdout, "retained artifact directory: %s\n", workspace.Root())
	}
	if !result.Success {
		return fmt.Errorf("%d failed, %d errored", result.Failed, result.Errored)
	}
	return nil
}

func loadConfig(opts *options, root string) (*config.Config, error) {
	if opts.configPath != "" {
		return config.Load(opts.configPath)
	}
	return config.LoadIfPresent(root)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	return cfg.Build()
}
