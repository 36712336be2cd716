package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/report"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Print a non-interactive artifact report",
	Long: `Scan finds gitignored build artifacts and prints a report grouped by
repository, sorted by last commit time with the longest-untouched
repositories first. Nothing is deleted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanReport,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// runScanReport runs the pipeline synchronously and prints the report.
func runScanReport(_ *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(args)
	if err != nil {
		return err
	}

	if err := gitrepo.Available(); err != nil {
		return err
	}

	if err := logging.Init(logging.Config{Level: logLevel()}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping scan...")
		cancel()
	}()

	fmt.Printf("Scanning %s for gitignored build artifacts...\n\n", cfg.Root)

	acc, err := report.NewScanner(cfg).Collect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Scan cancelled")
			return nil
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	printScanReport(cfg.Root, acc)
	return nil
}

// printScanReport writes the grouped report to stdout, oldest
// repositories first.
func printScanReport(root string, acc *report.Accumulator) {
	groups := acc.Groups()
	if len(groups) == 0 {
		fmt.Println("No gitignored build artifacts found.")
		printWarnings(acc)
		return
	}

	report.SortByHeadTime(groups)

	now := time.Now()
	var total int64
	for _, g := range groups {
		total += g.TotalSize

		lastCommit := "no commits"
		if g.HeadKnown && g.Head != nil {
			lastCommit = fmt.Sprintf("last commit %s (%s)",
				g.Head.Time.Format("2006-01-02"), g.Head.ShortHash())
		}

		age := "never touched"
		if days, ok := g.AgeDays(now); ok {
			age = fmt.Sprintf("%dd since last build", days)
		}

		fmt.Printf("%9s  %s\n", types.FormatSize(g.TotalSize), report.RelDisplay(root, g.Root))
		fmt.Printf("           %s, %s\n", lastCommit, age)
		for _, a := range g.Artifacts {
			fmt.Printf("           %9s  %s\n",
				types.FormatSize(a.Size), report.RelDisplay(g.Root, a.Path))
		}
		fmt.Println()
	}

	fmt.Printf("%d repositories, %s reclaimable\n", len(groups), types.FormatSize(total))
	printWarnings(acc)
}

// printWarnings writes per-item warnings to stderr.
func printWarnings(acc *report.Accumulator) {
	warnings := acc.Warnings()
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%d warnings:\n", len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  %s\n", w)
	}
}
