package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/tidydl/internal/clock"
	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/logging"
	"github.com/danieljhkim/tidydl/internal/watch"
)

var (
	watchSettle  time.Duration
	watchMaxWait time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR...",
	Short: "Clean new directories once they stop changing",
	Long: `Watch one or more directories and clean every new directory that appears in them.

A directory is cleaned (as with --prune) once nothing under it has changed for the
settle period, or once the maximum wait has passed since it appeared. Runs happen
one at a time. Stop with Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("settle") {
			settings.Watch.Settle = watchSettle
		}
		if cmd.Flags().Changed("max-wait") {
			settings.Watch.MaxWait = watchMaxWait
		}
		if err := settings.Validate(); err != nil {
			return err
		}

		eng, err := newEngine(paths, settings)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		toggles := globals.toggles()
		logger := logging.GetLogger("cli")

		run := func(ctx context.Context, path string) error {
			result, err := eng.Clean(ctx, &engine.CleanRequest{
				Target:     path,
				ConfigPath: globals.config,
				Toggles:    toggles,
			})
			if err != nil {
				return err
			}
			if globals.jsonOutput {
				if err := outputJSON(out, newJSONReport(result)); err != nil {
					logger.Warn().Err(err).Msg("Failed to write report")
				}
			} else {
				printSection(out, path)
				printSummary(out, result)
			}
			return completionError(result)
		}

		w, err := watch.New(args, &clock.RealClock{}, watch.Options{
			Settle:  settings.Watch.Settle,
			MaxWait: settings.Watch.MaxWait,
		}, run)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !globals.jsonOutput {
			printSuccess(out, fmt.Sprintf("Watching %s (settle %s, max wait %s)",
				formatCount(len(args), "directory", "directories"), settings.Watch.Settle, settings.Watch.MaxWait))
		}
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 10*time.Second, "Quiet period before a new directory is cleaned")
	watchCmd.Flags().DurationVar(&watchMaxWait, "max-wait", 10*time.Minute, "Clean a busy directory anyway after this long")
}
