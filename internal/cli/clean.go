package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/tidydl/internal/engine"
)

var cleanPrune bool

// runClean cleans the target directory, "." by default. Without --prune it
// only renders the plan.
func runClean(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	paths, settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(paths, settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := &engine.CleanRequest{
		Target:     target,
		ConfigPath: globals.config,
		DryRun:     !cleanPrune,
		Toggles:    globals.toggles(),
	}

	result, err := eng.Clean(ctx, req)
	if err != nil {
		if result != nil && !globals.jsonOutput {
			printSummary(cmd.OutOrStdout(), result)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if globals.jsonOutput {
		if err := outputJSON(out, newJSONReport(result)); err != nil {
			return err
		}
	} else {
		if result.DryRun {
			renderPlan(out, result.Plan)
			fmt.Fprintln(out)
		}
		printSummary(out, result)
	}

	return completionError(result)
}

// completionError turns per-entry problems of an applied run into
// ErrCompletedWithWarnings. Dry runs never fail this way.
func completionError(result *engine.CleanResult) error {
	if result.DryRun || !result.HasWarnings() {
		return nil
	}
	return engine.ErrCompletedWithWarnings
}
