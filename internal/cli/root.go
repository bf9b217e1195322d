package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/tidydl/internal/engine"
)

// Exit codes returned by the tidydl binary.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitWarnings = 2
)

// globalFlags are shared by the clean run and the watch command.
type globalFlags struct {
	config        string
	verbose       int
	jsonOutput    bool
	ignoreCase    bool
	hashAlgorithm string
	workers       int

	delete        bool
	noDelete      bool
	hash          bool
	noHash        bool
	rename        bool
	noRename      bool
	skipTmp       bool
	noSkipTmp     bool
	removeEmpty   bool
	noRemoveEmpty bool
}

var (
	globals globalFlags

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// toggles resolves the on/off flag pairs. Every category is on unless its
// "no-" flag was given.
func (g *globalFlags) toggles() engine.Toggles {
	return engine.Toggles{
		Delete:     g.delete || !g.noDelete,
		Hash:       g.hash || !g.noHash,
		Rename:     g.rename || !g.noRename,
		SkipMarked: g.skipTmp || !g.noSkipTmp,
		PruneEmpty: g.removeEmpty || !g.noRemoveEmpty,
	}
}

// rootCmd is the root command for tidydl. Run without a subcommand it
// cleans one directory tree.
var rootCmd = &cobra.Command{
	Use:     "tidydl [path]",
	Version: "dev",
	Short:   "Rule-driven cleanup of download directories",
	Long: `tidydl cleans a finished download tree using the rules in .cleanup-patterns.yml.

The rule file is looked up from the target directory upwards, then in your home
directory. Without --prune nothing is changed: the planned deletions [-], renames [*]
and empty directory removals [~] are printed as a tree.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClean,
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	}

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globals.config, "config", "c", "", "Use this rule file instead of searching for one")
	pf.CountVarP(&globals.verbose, "verbose", "v", "Increase log detail (-v info, -vv debug, -vvv trace)")
	pf.BoolVar(&globals.jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVar(&globals.ignoreCase, "ignore-case", false, "Match exact and wildcard names case-insensitively")
	pf.StringVar(&globals.hashAlgorithm, "hash-algorithm", "md5", "Digest used by remove_hash rules (md5 or sha256)")
	pf.IntVar(&globals.workers, "workers", 4, "Files hashed in parallel")

	pf.BoolVarP(&globals.delete, "delete", "d", false, "Apply remove rules [default]")
	pf.BoolVarP(&globals.noDelete, "no-delete", "D", false, "Do not apply remove rules")
	pf.BoolVarP(&globals.hash, "hash", "x", false, "Apply remove_hash rules [default]")
	pf.BoolVarP(&globals.noHash, "no-hash", "X", false, "Do not apply remove_hash rules")
	pf.BoolVarP(&globals.rename, "rename", "r", false, "Apply cleanup (rename) rules [default]")
	pf.BoolVarP(&globals.noRename, "no-rename", "R", false, "Do not apply cleanup (rename) rules")
	pf.BoolVarP(&globals.skipTmp, "skip-tmp", "t", false, "Leave skip-marked (.tmp) directories alone [default]")
	pf.BoolVarP(&globals.noSkipTmp, "no-skip-tmp", "T", false, "Treat skip-marked directories like any other")
	pf.BoolVarP(&globals.removeEmpty, "remove-empty-dir", "e", false, "Remove directories left empty [default]")
	pf.BoolVarP(&globals.noRemoveEmpty, "no-remove-empty-dir", "E", false, "Keep directories left empty")

	rootCmd.MarkFlagsMutuallyExclusive("delete", "no-delete")
	rootCmd.MarkFlagsMutuallyExclusive("hash", "no-hash")
	rootCmd.MarkFlagsMutuallyExclusive("rename", "no-rename")
	rootCmd.MarkFlagsMutuallyExclusive("skip-tmp", "no-skip-tmp")
	rootCmd.MarkFlagsMutuallyExclusive("remove-empty-dir", "no-remove-empty-dir")

	rootCmd.Flags().BoolVar(&cleanPrune, "prune", false, "Apply the plan (without it, only show what would change)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "automation",
		Title: "Automation:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the tidydl version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	rootCmd.SetCompletionCommandGroupID("cli-tooling")

	watchCmd.GroupID = "automation"
	rootCmd.AddCommand(watchCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps the error returned by Execute to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, engine.ErrCompletedWithWarnings):
		return ExitWarnings
	default:
		return ExitFatal
	}
}

// ReportError prints err to stderr the way its exit code calls for.
func ReportError(err error) {
	if err == nil {
		return
	}
	if ExitCode(err) == ExitWarnings {
		printWarning(os.Stderr, "Cleanup finished with warnings")
		return
	}
	fmt.Fprintln(os.Stderr, formatError(err))
}
