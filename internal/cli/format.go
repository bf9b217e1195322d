package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/planner"
)

var (
	// fatih/color disables itself when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
)

// printSection prints a section header
func printSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
	fmt.Fprintln(w)
}

// printSuccess prints a success message with a checkmark
func printSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

// printWarning prints a warning message with a warning symbol
func printWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

// printError prints an error message
func printError(w io.Writer, msg string) {
	_, _ = errorColor.Fprintf(w, "✗ %s\n", msg)
}

// printLabelValue prints a label-value pair with proper formatting
func printLabelValue(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %s: ", label)
	_, _ = valueColor.Fprintln(w, value)
}

// formatCount returns "1 file" or "2 files".
func formatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// formatError formats a fatal error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// actionTally counts operations per kind and the bytes their deletions free.
type actionTally struct {
	deleted  int
	renamed  int
	pruned   int
	reclaims int64
}

func tally(ops []planner.Operation) actionTally {
	var t actionTally
	for _, op := range ops {
		switch op.Kind {
		case planner.KindDelete, planner.KindDeleteByHash:
			t.deleted++
			t.reclaims += op.Size
		case planner.KindRename:
			t.renamed++
		case planner.KindPrune:
			t.pruned++
		}
	}
	return t
}

func (t actionTally) total() int {
	return t.deleted + t.renamed + t.pruned
}

// summaryLine phrases a tally for a dry run or a completed run.
func (t actionTally) summaryLine(dryRun bool) string {
	if t.total() == 0 {
		return "Nothing to clean"
	}

	var parts []string
	if dryRun {
		if t.deleted > 0 {
			parts = append(parts, fmt.Sprintf("%d to delete", t.deleted))
		}
		if t.renamed > 0 {
			parts = append(parts, fmt.Sprintf("%d to rename", t.renamed))
		}
		if t.pruned > 0 {
			parts = append(parts, fmt.Sprintf("%d empty %s to remove", t.pruned, plural(t.pruned, "directory", "directories")))
		}
		return fmt.Sprintf("Would apply %s: %s (%s reclaimable)",
			formatCount(t.total(), "change", "changes"), strings.Join(parts, ", "), humanize.Bytes(uint64(t.reclaims)))
	}

	if t.deleted > 0 {
		parts = append(parts, fmt.Sprintf("deleted %d", t.deleted))
	}
	if t.renamed > 0 {
		parts = append(parts, fmt.Sprintf("renamed %d", t.renamed))
	}
	if t.pruned > 0 {
		parts = append(parts, fmt.Sprintf("removed %d empty %s", t.pruned, plural(t.pruned, "directory", "directories")))
	}
	return fmt.Sprintf("Applied %s: %s (%s reclaimed)",
		formatCount(t.total(), "change", "changes"), strings.Join(parts, ", "), humanize.Bytes(uint64(t.reclaims)))
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// printSummary prints the outcome of a run: counts, reclaimed bytes, then
// every warning and failure.
func printSummary(w io.Writer, result *engine.CleanResult) {
	ops := result.Applied
	if result.DryRun {
		ops = result.Plan.Actions()
	}
	printSuccess(w, tally(ops).summaryLine(result.DryRun))

	if result.ConfigPath != "" {
		printLabelValue(w, "Rules", result.ConfigPath)
	} else {
		printLabelValue(w, "Rules", "none found")
	}
	printLabelValue(w, "Took", result.Duration.Round(time.Millisecond).String())

	if !result.HasWarnings() {
		return
	}

	printSection(w, formatCount(result.WarningCount(), "warning", "warnings"))
	for _, warning := range result.Plan.Warnings {
		printWarning(w, warning.String())
	}
	for _, failure := range result.Failures {
		printError(w, failure.Error())
	}
}
