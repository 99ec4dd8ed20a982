package recurrence

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds configuration options for the Engine.
type EngineConfig struct {
	CacheEnabled bool        `yaml:"cacheEnabled"`
	CacheConfig  CacheConfig `yaml:"cache"`

	// MaxExpansionOccurrences caps a single expansion.
	MaxExpansionOccurrences int `yaml:"maxExpansionOccurrences"`
	// LargeRangeThreshold is the range length above which
	// HasOccurrenceInRange first probes only the first LargeRangeLimit.
	LargeRangeThreshold time.Duration `yaml:"largeRangeThreshold"`
	LargeRangeLimit     time.Duration `yaml:"largeRangeLimit"`

	// Iterator knobs, see WithMaxEmptyPeriods and WithMaxEmptyYears.
	MaxEmptyPeriods int `yaml:"maxEmptyPeriods"`
	MaxEmptyYears   int `yaml:"maxEmptyYears"`
}

// DefaultEngineConfig provides sensible defaults for production use.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxExpansionOccurrences: 1000,
	LargeRangeThreshold:     90 * 24 * time.Hour,
	LargeRangeLimit:         90 * 24 * time.Hour,

	MaxEmptyPeriods: DefaultMaxEmptyPeriods,
	MaxEmptyYears:   DefaultMaxEmptyYears,
}

// HighPerformanceConfig is tuned for high-traffic servers.
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},

	MaxExpansionOccurrences: 500,
	LargeRangeThreshold:     30 * 24 * time.Hour,
	LargeRangeLimit:         30 * 24 * time.Hour,

	MaxEmptyPeriods: 100_000,
	MaxEmptyYears:   DefaultMaxEmptyYears,
}

// LowMemoryConfig keeps the cache small.
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},

	MaxExpansionOccurrences: 200,
	LargeRangeThreshold:     180 * 24 * time.Hour,
	LargeRangeLimit:         180 * 24 * time.Hour,

	MaxEmptyPeriods: DefaultMaxEmptyPeriods,
	MaxEmptyYears:   DefaultMaxEmptyYears,
}

// DisabledCacheConfig turns off caching entirely.
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,

	MaxExpansionOccurrences: 5000,
	LargeRangeThreshold:     365 * 24 * time.Hour,
	LargeRangeLimit:         365 * 24 * time.Hour,

	MaxEmptyPeriods: DefaultMaxEmptyPeriods,
	MaxEmptyYears:   DefaultMaxEmptyYears,
}

var presets = map[string]EngineConfig{
	"default":         DefaultEngineConfig,
	"highPerformance": HighPerformanceConfig,
	"lowMemory":       LowMemoryConfig,
	"disabledCache":   DisabledCacheConfig,
}

// configFile is the YAML layout: an optional preset name whose values are
// overridden by the remaining keys.
type configFile struct {
	Preset       string `yaml:"preset"`
	EngineConfig `yaml:",inline"`
}

// LoadEngineConfig reads a YAML engine configuration. Keys left out keep the
// value of the named preset, or of DefaultEngineConfig without one.
func LoadEngineConfig(r io.Reader) (EngineConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("recurrence: read engine config: %w", err)
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return EngineConfig{}, fmt.Errorf("recurrence: parse engine config: %w", err)
	}
	base := DefaultEngineConfig
	if head.Preset != "" {
		p, ok := presets[head.Preset]
		if !ok {
			return EngineConfig{}, fmt.Errorf("%w: unknown preset %q", ErrOutOfRange, head.Preset)
		}
		base = p
	}

	file := configFile{EngineConfig: base}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return EngineConfig{}, fmt.Errorf("recurrence: parse engine config: %w", err)
	}
	cfg := file.EngineConfig
	if cfg.MaxExpansionOccurrences < 1 {
		return EngineConfig{}, fmt.Errorf("%w: maxExpansionOccurrences %d", ErrOutOfRange, cfg.MaxExpansionOccurrences)
	}
	return cfg, nil
}

func (c EngineConfig) iteratorOptions() []IteratorOption {
	return []IteratorOption{
		WithMaxEmptyPeriods(c.MaxEmptyPeriods),
		WithMaxEmptyYears(c.MaxEmptyYears),
	}
}
