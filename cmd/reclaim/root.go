package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/reclaim/pkg/reclaim/clean"
	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reclaim/cmd/reclaim/tui"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "reclaim [path]",
		Short: "Delete gitignored build artifacts from old projects",
		Long: `Reclaim finds build-artifact directories (node_modules, target, dist, ...)
under a workspace, verifies each is gitignored by its repository, and helps
you delete the stale ones.

By default, reclaim launches an interactive TUI to review and clean
repositories. Use the scan subcommand for a non-interactive report.

Examples:
  reclaim                        # Scan current directory with TUI
  reclaim ~/src                  # Scan a workspace
  reclaim -d ~/src               # Preview without deleting
  reclaim --all --stale-days 365 # Pre-select everything untouched for a year
  reclaim scan ~/src             # Non-interactive report`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRoot,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/reclaim/config.yaml)")
	rootCmd.PersistentFlags().StringP("min-size", "s", "", "minimum group size for auto-selection (e.g., 100M, 1GiB)")
	rootCmd.PersistentFlags().Int("stale-days", 0, "age threshold in days for auto-selection")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override worker count (0=auto)")
	rootCmd.PersistentFlags().StringArrayP("artifact", "a", nil, "extra artifact directory name (can be specified multiple times)")
	rootCmd.PersistentFlags().Bool("no-default-artifacts", false, "match only names given with --artifact")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "don't delete anything (preview only)")
	rootCmd.PersistentFlags().Bool("all", false, "pre-select every repository")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("min_size", rootCmd.PersistentFlags().Lookup("min-size"))
	_ = viper.BindPFlag("stale_days", rootCmd.PersistentFlags().Lookup("stale-days"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("artifact", rootCmd.PersistentFlags().Lookup("artifact"))
	_ = viper.BindPFlag("no_default_artifacts", rootCmd.PersistentFlags().Lookup("no-default-artifacts"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("all", rootCmd.PersistentFlags().Lookup("all"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if dir, err := config.Dir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("RECLAIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("min_size", config.DefaultMinSize)
	viper.SetDefault("stale_days", config.DefaultStaleDays)
	viper.SetDefault("default_path", config.DefaultPath)
	viper.SetDefault("workers", config.DefaultWorkers)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// runRoot launches the interactive TUI.
func runRoot(_ *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(args)
	if err != nil {
		return err
	}

	if err := gitrepo.Available(); err != nil {
		return err
	}

	// Log to file only; the TUI owns the terminal.
	if err := logging.Init(logging.Config{Level: logLevel()}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	summary, err := tui.Run(tui.Options{Config: cfg})
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}

	printCleanSummary(summary)
	if failures := summary.Failures(); len(failures) > 0 {
		return fmt.Errorf("%d directories could not be deleted", len(failures))
	}
	return nil
}

// printCleanSummary writes the end-of-run deletion report to stdout.
func printCleanSummary(summary *clean.Summary) {
	if summary.DryRun {
		fmt.Printf("Dry run: would reclaim %s\n", types.FormatSize(summary.Reclaimed))
	} else {
		fmt.Printf("Reclaimed %s\n", types.FormatSize(summary.Reclaimed))
	}

	for _, o := range summary.Skipped() {
		fmt.Fprintf(os.Stderr, "skipped %s: %v\n", o.Target.Path, o.Err)
	}
	for _, o := range summary.Failures() {
		fmt.Fprintf(os.Stderr, "failed %s: %v\n", o.Target.Path, o.Err)
	}
}

// buildScanConfig resolves flags, config file, and arguments into the
// immutable configuration consumed by the scan pipeline.
func buildScanConfig(args []string) (types.ScanConfig, error) {
	scanPath := "."
	if len(args) > 0 {
		scanPath = args[0]
	} else if defaultPath := viper.GetString("default_path"); defaultPath != "" {
		scanPath = defaultPath
	}

	expandedPath, err := config.ExpandPath(scanPath)
	if err != nil {
		return types.ScanConfig{}, fmt.Errorf("failed to expand path: %w", err)
	}

	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return types.ScanConfig{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ScanConfig{}, fmt.Errorf("path does not exist: %s", absPath)
		}
		return types.ScanConfig{}, fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return types.ScanConfig{}, fmt.Errorf("path is not a directory: %s", absPath)
	}

	minSizeStr := viper.GetString("min_size")
	if minSizeStr == "" {
		minSizeStr = config.DefaultMinSize
	}
	minSize, err := types.ParseSize(minSizeStr)
	if err != nil {
		return types.ScanConfig{}, fmt.Errorf("invalid minimum size %q: %w", minSizeStr, err)
	}

	staleDays := viper.GetInt("stale_days")
	if staleDays < 0 {
		return types.ScanConfig{}, fmt.Errorf("stale-days cannot be negative: %d", staleDays)
	}

	names := config.ArtifactNames(
		viper.GetStringSlice("artifact"),
		!viper.GetBool("no_default_artifacts"),
	)
	if len(names) == 0 {
		return types.ScanConfig{}, fmt.Errorf("no artifact names to match; give at least one --artifact")
	}

	return types.ScanConfig{
		Root:          absPath,
		ArtifactNames: names,
		Workers:       viper.GetInt("workers"),
		MinSize:       minSize,
		StaleDays:     staleDays,
		DryRun:        viper.GetBool("dry_run"),
		SelectAll:     viper.GetBool("all"),
	}, nil
}

// logLevel maps the verbose flag to a logging level.
func logLevel() string {
	if viper.GetBool("verbose") {
		return "debug"
	}
	return "info"
}
