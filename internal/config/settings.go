package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable tidydl reads.
const EnvPrefix = "TIDYDL_"

// Settings holds tool behavior that is not part of a rule file.
type Settings struct {
	Rules RulesSettings `koanf:"rules"`
	Skip  SkipSettings  `koanf:"skip"`
	Hash  HashSettings  `koanf:"hash"`
	Match MatchSettings `koanf:"match"`
	Watch WatchSettings `koanf:"watch"`
}

// RulesSettings controls rule file discovery.
type RulesSettings struct {
	// Filename is the rule file name looked up from the target upwards
	Filename string `koanf:"filename"`
}

// SkipSettings controls the incomplete-download marker.
type SkipSettings struct {
	// Marker is the directory name suffix that marks an in-progress download
	Marker string `koanf:"marker"`
}

// HashSettings controls digest computation.
type HashSettings struct {
	Algorithm string `koanf:"algorithm"`
	Workers   int    `koanf:"workers"`
}

// MatchSettings controls name matching.
type MatchSettings struct {
	// Fold makes Exact and Wildcard patterns case-insensitive
	Fold bool `koanf:"fold"`
}

// WatchSettings controls stabilization in watch mode.
type WatchSettings struct {
	Settle  time.Duration `koanf:"settle"`
	MaxWait time.Duration `koanf:"maxwait"`
}

func defaultSettings() map[string]interface{} {
	return map[string]interface{}{
		"rules.filename": ".cleanup-patterns.yml",
		"skip.marker":    ".tmp",
		"hash.algorithm": "md5",
		"hash.workers":   4,
		"match.fold":     false,
		"watch.settle":   "10s",
		"watch.maxwait":  "10m",
	}
}

// LoadSettings layers defaults, the optional settings file and TIDYDL_*
// environment variables, in that order of precedence (last wins).
// A missing settings file is fine; an unreadable or malformed one is not.
func LoadSettings(settingsFile string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultSettings(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default settings: %w", err)
	}

	if settingsFile != "" {
		if _, err := os.Stat(settingsFile); err == nil {
			if err := k.Load(file.Provider(settingsFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load settings from %s: %w", settingsFile, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment settings: %w", err)
	}

	var settings Settings
	if err := k.Unmarshal("", &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks settings for values the engine cannot work with.
func (s *Settings) Validate() error {
	if s.Rules.Filename == "" {
		return fmt.Errorf("invalid settings: rules.filename is empty")
	}
	if strings.ContainsRune(s.Rules.Filename, '/') {
		return fmt.Errorf("invalid settings: rules.filename %q must be a bare file name", s.Rules.Filename)
	}

	switch strings.ToLower(s.Hash.Algorithm) {
	case "md5", "sha256":
	default:
		return fmt.Errorf("invalid settings: hash.algorithm %q (want md5 or sha256)", s.Hash.Algorithm)
	}

	if s.Hash.Workers < 1 {
		s.Hash.Workers = 1
	}

	if s.Watch.Settle <= 0 {
		return fmt.Errorf("invalid settings: watch.settle must be positive")
	}
	if s.Watch.MaxWait < s.Watch.Settle {
		return fmt.Errorf("invalid settings: watch.maxwait (%s) is shorter than watch.settle (%s)", s.Watch.MaxWait, s.Watch.Settle)
	}

	return nil
}
