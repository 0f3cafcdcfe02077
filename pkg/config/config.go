// Package config loads javaperf settings from defaults and an optional
// TOML, YAML or JSON file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for javaperf.
type Config struct {
	Scan    ScanConfig    `koanf:"scan" toml:"scan" json:"scan" yaml:"scan"`
	Rules   RulesConfig   `koanf:"rules" toml:"rules" json:"rules" yaml:"rules"`
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" json:"exclude" yaml:"exclude"`
	Cache   CacheConfig   `koanf:"cache" toml:"cache" json:"cache" yaml:"cache"`
	Output  OutputConfig  `koanf:"output" toml:"output" json:"output" yaml:"output"`

	once       sync.Once              `koanf:"-" toml:"-" json:"-" yaml:"-"`
	excludes   []glob.Glob            `koanf:"-" toml:"-" json:"-" yaml:"-"`
	ruleIgnore map[string][]glob.Glob `koanf:"-" toml:"-" json:"-" yaml:"-"`
}

// ScanConfig controls the orchestrator.
type ScanConfig struct {
	Workers      int   `koanf:"workers" toml:"workers" json:"workers" yaml:"workers"` // 0 means 2x NumCPU
	TraceDepth   int   `koanf:"trace_depth" toml:"trace_depth" json:"trace_depth" yaml:"trace_depth"`
	MaxSecondary int   `koanf:"max_secondary" toml:"max_secondary" json:"max_secondary" yaml:"max_secondary"`
	Compact      bool  `koanf:"compact" toml:"compact" json:"compact" yaml:"compact"`
	MaxFileSize  int64 `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size" yaml:"max_file_size"` // bytes, 0 disables
}

// RulesConfig selects rules and overrides their severity. Ignore maps a
// rule id to path globs (relative to the scan root) where it is not reported.
type RulesConfig struct {
	Enabled  []string            `koanf:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Disabled []string            `koanf:"disabled" toml:"disabled" json:"disabled" yaml:"disabled"`
	Severity map[string]string   `koanf:"severity" toml:"severity" json:"severity" yaml:"severity"`
	Ignore   map[string][]string `koanf:"ignore" toml:"ignore" json:"ignore" yaml:"ignore"`
}

// ExcludeConfig defines file exclusion.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns" json:"patterns" yaml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs" json:"dirs" yaml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" json:"gitignore" yaml:"gitignore"`
}

// CacheConfig controls caching of per-file symbol indexes.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" json:"dir" yaml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" json:"ttl" yaml:"ttl"` // hours
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format" yaml:"format"` // text, markdown, json, yaml, toon
	Color  bool   `koanf:"color" toml:"color" json:"color" yaml:"color"`
}

// Formats lists the supported output formats.
var Formats = []string{"text", "markdown", "json", "yaml", "toon"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			TraceDepth:   5,
			MaxSecondary: 20,
			MaxFileSize:  2 << 20,
		},
		Rules: RulesConfig{
			Severity: map[string]string{},
			Ignore:   map[string][]string{},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"**/generated/**",
				"**/package-info.java",
				"**/module-info.java",
			},
			Dirs: []string{
				".git",
				".javaperf",
				".idea",
				".gradle",
				"target",
				"build",
				"out",
				"node_modules",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".javaperf/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// ConfigNames are the file names LoadConfig searches for, in order.
var ConfigNames = []string{
	"javaperf.toml",
	"javaperf.yaml",
	"javaperf.yml",
	"javaperf.json",
	".javaperf.toml",
	".javaperf.yaml",
	".javaperf.yml",
	".javaperf.json",
}

// LoadResult is a loaded configuration and where it came from.
type LoadResult struct {
	Config *Config
	// Source is the file that was loaded, or "" when only defaults apply.
	Source string
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file; a missing file is an error.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithDir searches for a config file under dir instead of the working
// directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) { o.dir = dir }
}

// LoadConfig finds, loads and validates configuration. With no file present
// the defaults are returned.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = find(o.dir)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

func find(dir string) string {
	for _, sub := range []string{"", ".javaperf"} {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, sub, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load reads a config file over the defaults, then validates it against the
// schema and semantic constraints.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := validateSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ErrInvalid wraps every semantic validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks value ranges and compiles every glob.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers))
	}
	if c.Scan.TraceDepth < 1 || c.Scan.TraceDepth > 20 {
		errs = append(errs, fmt.Errorf("scan.trace_depth must be between 1 and 20, got %d", c.Scan.TraceDepth))
	}
	if c.Scan.MaxSecondary < 0 {
		errs = append(errs, fmt.Errorf("scan.max_secondary must be >= 0, got %d", c.Scan.MaxSecondary))
	}
	for id, sev := range c.Rules.Severity {
		if s := strings.ToUpper(sev); s != "P0" && s != "P1" {
			errs = append(errs, fmt.Errorf("rules.severity.%s must be P0 or P1, got %q", id, sev))
		}
	}
	if !validFormat(c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format must be one of %s, got %q", strings.Join(Formats, ", "), c.Output.Format))
	}
	for _, p := range c.Exclude.Patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("exclude.patterns %q: %w", p, err))
		}
	}
	for id, patterns := range c.Rules.Ignore {
		for _, p := range patterns {
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("rules.ignore.%s %q: %w", id, p, err))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func (c *Config) compile() {
	c.once.Do(func() {
		for _, p := range c.Exclude.Patterns {
			if g, err := glob.Compile(p, '/'); err == nil {
				c.excludes = append(c.excludes, g)
			}
		}
		c.ruleIgnore = make(map[string][]glob.Glob, len(c.Rules.Ignore))
		for id, patterns := range c.Rules.Ignore {
			id = strings.ToUpper(strings.TrimSpace(id))
			for _, p := range patterns {
				if g, err := glob.Compile(p, '/'); err == nil {
					c.ruleIgnore[id] = append(c.ruleIgnore[id], g)
				}
			}
		}
	})
}

// ShouldExclude reports whether a root-relative, slash-separated path is
// excluded by a directory name or a pattern.
func (c *Config) ShouldExclude(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		for _, dir := range c.Exclude.Dirs {
			if part == dir {
				return true
			}
		}
	}
	c.compile()
	for _, g := range c.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// ExcludesDir reports whether a directory name is excluded outright.
func (c *Config) ExcludesDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// RuleIgnored reports whether ruleID is silenced for a root-relative path.
func (c *Config) RuleIgnored(ruleID, rel string) bool {
	if len(c.Rules.Ignore) == 0 {
		return false
	}
	c.compile()
	rel = filepath.ToSlash(rel)
	for _, g := range c.ruleIgnore[strings.ToUpper(ruleID)] {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
