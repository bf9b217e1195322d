package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/tidydl/internal/clock"
	"github.com/danieljhkim/tidydl/internal/config"
	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/fsops"
	"github.com/danieljhkim/tidydl/internal/hash"
	"github.com/danieljhkim/tidydl/internal/logging"
)

// loadSettings resolves paths, loads settings, applies flag overrides and
// configures logging. It runs before any command does real work.
func loadSettings(cmd *cobra.Command) (*config.Paths, *config.Settings, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	logging.SetupLogger(globals.verbose, paths.LogFile)

	settings, err := config.LoadSettings(paths.SettingsFile)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("hash-algorithm") {
		settings.Hash.Algorithm = globals.hashAlgorithm
	}
	if flags.Changed("workers") {
		settings.Hash.Workers = globals.workers
	}
	if globals.ignoreCase {
		settings.Match.Fold = true
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	return paths, settings, nil
}

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine(paths *config.Paths, settings *config.Settings) (*engine.Engine, error) {
	fs := fsops.NewRealFS()

	hasher, err := hash.New(fs, settings.Hash.Algorithm)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cli")
	logger.Debug().
		Str("algorithm", hasher.Algorithm()).
		Int("workers", settings.Hash.Workers).
		Bool("fold", settings.Match.Fold).
		Msg("Engine configured")

	return engine.New(fs, hasher, &clock.RealClock{}, engine.Options{
		RulesFilename: settings.Rules.Filename,
		Home:          paths.Home,
		SkipMarker:    settings.Skip.Marker,
		Workers:       settings.Hash.Workers,
		Fold:          settings.Match.Fold,
	}), nil
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
