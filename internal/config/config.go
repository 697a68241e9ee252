package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the optional workspace configuration file
const FileName = "xtask.yaml"

// Config represents the xtask.yaml configuration file
type Config struct {
	// Root is the workspace root. All relative paths resolve against it and
	// every subprocess runs with it as working directory.
	Root string `yaml:"-"`

	// Tools are the external executables, taken from the environment
	Tools Tools `yaml:"-"`

	Layout  Layout      `yaml:"layout"`
	Targets []Target    `yaml:"targets"`
	Patches []PatchRule `yaml:"patches"`
	Watch   WatchConfig `yaml:"watch"`
}

// Tools locates the external programs the tasks drive
type Tools struct {
	Protoc      string `env:"PROTOC" envDefault:"protoc"`
	Cargo       string `env:"CARGO" envDefault:"cargo"`
	Git         string `env:"GIT" envDefault:"git"`
	ClangTidy   string `env:"CLANG_TIDY" envDefault:"clang-tidy"`
	ClangFormat string `env:"CLANG_FORMAT" envDefault:"clang-format"`
	Rustfmt     string `env:"RUSTFMT" envDefault:"rustfmt"`
}

// Layout describes the shape of the compilers' invocations and of the files they emit
type Layout struct {
	SchemaExt    string `yaml:"schema_ext"`
	GeneratedExt string `yaml:"generated_ext"`
	PrimaryDir   string `yaml:"primary_dir"`
	AlternateDir string `yaml:"alternate_dir"`

	// Primary codec
	MessageOutFlag string   `yaml:"message_out_flag"`
	StubOutFlag    string   `yaml:"stub_out_flag"`
	StubSuffix     string   `yaml:"stub_suffix"`
	PluginName     string   `yaml:"plugin_name"`
	PluginPath     string   `yaml:"plugin_path"`
	PluginBuild    []string `yaml:"plugin_build"`

	// Reexport is a format string taking the stub module name
	Reexport string `yaml:"reexport"`

	// VersionMarker identifies runtime version assertions to strip
	VersionMarker string `yaml:"version_marker"`

	// Alternate codec
	AlternateBuildDir string   `yaml:"alternate_build_dir"`
	AlternateBuild    []string `yaml:"alternate_build"`
	AlternateBinary   string   `yaml:"alternate_binary"`

	// Format is run with the cargo tool once all targets are generated
	Format []string `yaml:"format"`
}

// Target is one (include root, packages, output root, namespace) generation unit
type Target struct {
	IncludeRoot string   `yaml:"include"`
	Packages    []string `yaml:"packages"`
	OutputRoot  string   `yaml:"output"`
	Namespace   string   `yaml:"namespace"`
}

// PatchRule rewrites a single generated file
type PatchRule struct {
	File string `yaml:"file"`
	// Substitutions are applied in order. Later entries see the output of earlier ones.
	Substitutions []Substitution `yaml:"substitutions"`
}

// Substitution is an exact literal replacement
type Substitution struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// WatchConfig contains watch mode configuration
type WatchConfig struct {
	DebounceMillis int      `yaml:"debounce_ms"`
	Exclude        []string `yaml:"exclude"`
}

// Name returns a printable identifier for the target
func (t Target) Name() string {
	if t.Namespace == "" {
		return strings.SplitN(filepath.ToSlash(t.OutputRoot), "/", 2)[0]
	}
	return t.Namespace
}

// PrimaryOut returns the output directory of the primary codec for the target
func (l Layout) PrimaryOut(t Target) string {
	return filepath.Join(t.OutputRoot, l.PrimaryDir, t.Namespace)
}

// AlternateOut returns the output directory of the alternate codec for the target
func (l Layout) AlternateOut(t Target) string {
	return filepath.Join(t.OutputRoot, l.AlternateDir, t.Namespace)
}

// Path resolves p against the workspace root
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// PatchesFor returns the rules whose file lies inside the primary output of t, in table order
func (c *Config) PatchesFor(t Target) []PatchRule {
	var scoped []PatchRule
	for _, rule := range c.Patches {
		if c.within(c.Layout.PrimaryOut(t), rule.File) {
			scoped = append(scoped, rule)
		}
	}
	return scoped
}

// ValidatePatches checks that every patch rule is claimed by a target.
// A rule no target claims would otherwise never be applied.
func (c *Config) ValidatePatches() error {
	for i, p := range c.Patches {
		if p.File == "" {
			return fmt.Errorf("patch %d: file is required", i)
		}
		if len(p.Substitutions) == 0 {
			return fmt.Errorf("patch %s: no substitutions", p.File)
		}
		for _, s := range p.Substitutions {
			if s.Old == "" {
				return fmt.Errorf("patch %s: empty substitution source", p.File)
			}
		}

		claimed := false
		for _, t := range c.Targets {
			if c.within(c.Layout.PrimaryOut(t), p.File) {
				claimed = true
				break
			}
		}
		if !claimed {
			return fmt.Errorf("patch %s: not inside the primary output of any target", p.File)
		}
	}
	return nil
}

// within reports whether file lies inside dir, both resolved against the root
func (c *Config) within(dir, file string) bool {
	rel, err := filepath.Rel(c.Path(dir), c.Path(file))
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// LoadConfig loads xtask.yaml from the current directory or a parent directory.
// Without a file the built-in tables apply and the current directory is the root.
func LoadConfig() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return loadConfigFromDir(dir)
}

// LoadConfigFromPath loads the configuration from a specific file
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	config.Root = root

	if err := config.finish(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the built-in configuration rooted at root
func Default(root string) (*Config, error) {
	config := &Config{Root: root}
	if err := config.finish(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadConfigFromDir searches for xtask.yaml in the given directory and its parents
func loadConfigFromDir(startDir string) (*Config, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return LoadConfigFromPath(configPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return Default(startDir)
}

func (c *Config) finish() error {
	if err := env.Parse(&c.Tools); err != nil {
		return fmt.Errorf("failed to read tool locations from environment: %w", err)
	}
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyDefaults() {
	d := DefaultLayout()
	l := &c.Layout
	setDefault(&l.SchemaExt, d.SchemaExt)
	setDefault(&l.GeneratedExt, d.GeneratedExt)
	setDefault(&l.PrimaryDir, d.PrimaryDir)
	setDefault(&l.AlternateDir, d.AlternateDir)
	setDefault(&l.MessageOutFlag, d.MessageOutFlag)
	setDefault(&l.StubOutFlag, d.StubOutFlag)
	setDefault(&l.StubSuffix, d.StubSuffix)
	setDefault(&l.PluginName, d.PluginName)
	setDefault(&l.PluginPath, d.PluginPath)
	setDefault(&l.Reexport, d.Reexport)
	setDefault(&l.VersionMarker, d.VersionMarker)
	setDefault(&l.AlternateBuildDir, d.AlternateBuildDir)
	setDefault(&l.AlternateBinary, d.AlternateBinary)
	if len(l.PluginBuild) == 0 {
		l.PluginBuild = d.PluginBuild
	}
	if len(l.AlternateBuild) == 0 {
		l.AlternateBuild = d.AlternateBuild
	}
	if len(l.Format) == 0 {
		l.Format = d.Format
	}

	if c.Targets == nil {
		c.Targets = DefaultTargets()
	}
	if c.Patches == nil {
		c.Patches = DefaultPatches()
	}

	if c.Watch.DebounceMillis == 0 {
		c.Watch.DebounceMillis = 300
	}
	if len(c.Watch.Exclude) == 0 {
		c.Watch.Exclude = []string{".*", "*~", "*.tmp"}
	}
}

// Validate checks the configuration for required fields
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("no generation targets configured")
	}
	for i, t := range c.Targets {
		if t.IncludeRoot == "" {
			return fmt.Errorf("target %d: include root is required", i)
		}
		if t.OutputRoot == "" {
			return fmt.Errorf("target %d: output root is required", i)
		}
		if len(t.Packages) == 0 {
			return fmt.Errorf("target %d: at least one package is required", i)
		}
	}
	if err := c.ValidatePatches(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Layout.SchemaExt, ".") || !strings.HasPrefix(c.Layout.GeneratedExt, ".") {
		return fmt.Errorf("extensions must start with a dot")
	}
	if strings.Count(c.Layout.Reexport, "%s") != 1 {
		return fmt.Errorf("reexport format must contain exactly one %%s")
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
