// internal/config/config.go
//
// This package handles run configuration and the .texweave directory
// structure. Every project that uses texweave gets a .texweave/ folder
// created in its root for logs and the config file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/texweave/internal/document"
)

const (
	// TexweaveDir is the name of the directory we create in each project.
	TexweaveDir = ".texweave"

	configFileName = "config.yaml"
)

const defaultRunConfigYAML = `# texweave run configuration
version: 1

model:
  name: gemini-2.0-flash
  api_key_env: GEMINI_API_KEY

paths:
  document: document.tex
  instruction: instruction.txt
  output: document_new.tex

run:
  # Set sequential: true to degrade every fan-out to strictly ordered
  # execution (deterministic, useful for debugging).
  sequential: false
  max_parallel: 8

retry:
  max_attempts: 5
  backoff_seconds: 1

# Per-level candidate counts and refinement budgets.
levels:
  document:
    candidates: 1
    max_iterations: 5
  section:
    candidates: 2
    max_iterations: 3
  subsection:
    candidates: 2
    max_iterations: 1
  block:
    candidates: 3
    max_iterations: 1

review:
  reviewers: 3

labels:
  length: 4
`

// ModelConfig selects the generation model and where its key comes from.
type ModelConfig struct {
	Name      string `yaml:"name"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// PathsConfig names the input and output files for a run.
type PathsConfig struct {
	Document    string `yaml:"document"`
	Instruction string `yaml:"instruction"`
	Output      string `yaml:"output"`
}

// RunConfig holds the scheduling knobs.
type RunConfig struct {
	Sequential  bool `yaml:"sequential"`
	MaxParallel int  `yaml:"max_parallel"`
}

// RetryConfig bounds transient-failure retries per port call.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
}

// LevelConfig configures one delegation level.
type LevelConfig struct {
	Candidates    int `yaml:"candidates"`
	MaxIterations int `yaml:"max_iterations"`
}

// LevelsConfig configures all four delegation levels.
type LevelsConfig struct {
	Document   LevelConfig `yaml:"document"`
	Section    LevelConfig `yaml:"section"`
	Subsection LevelConfig `yaml:"subsection"`
	Block      LevelConfig `yaml:"block"`
}

// ReviewConfig sizes the leaf review panel.
type ReviewConfig struct {
	Reviewers int `yaml:"reviewers"`
}

// LabelsConfig controls LaTeX label allocation.
type LabelsConfig struct {
	Length int `yaml:"length"`
}

// RunSettings models .texweave/config.yaml.
type RunSettings struct {
	Version int          `yaml:"version"`
	Model   ModelConfig  `yaml:"model"`
	Paths   PathsConfig  `yaml:"paths"`
	Run     RunConfig    `yaml:"run"`
	Retry   RetryConfig  `yaml:"retry"`
	Levels  LevelsConfig `yaml:"levels"`
	Review  ReviewConfig `yaml:"review"`
	Labels  LabelsConfig `yaml:"labels"`
}

// Config holds the runtime configuration for texweave.
type Config struct {
	// ProjectDir is the directory where the user ran `texweave` from.
	ProjectDir string

	// TexweaveProjectDir is ProjectDir/.texweave.
	TexweaveProjectDir string

	Settings RunSettings
}

// InitTexweaveDir creates the .texweave directory structure in the given
// project directory and writes the default config file if none exists.
//
// Structure created:
// .texweave/
// ├── logs/        <- run logs
// └── config.yaml  <- run configuration
func InitTexweaveDir(projectDir string) error {
	texweaveDir := filepath.Join(projectDir, TexweaveDir)
	if err := os.MkdirAll(filepath.Join(texweaveDir, "logs"), 0755); err != nil {
		return err
	}
	return ensureRunConfig(filepath.Join(texweaveDir, configFileName))
}

// NewConfig creates a Config populated from .texweave/config.yaml, falling
// back to defaults for anything the file leaves out.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:         projectDir,
		TexweaveProjectDir: filepath.Join(projectDir, TexweaveDir),
		Settings:           defaultRunSettings(),
	}
	if err := cfg.loadRunSettings(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.TexweaveProjectDir, "logs")
}

// ConfigPath returns the on-disk location for the run config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.TexweaveProjectDir, configFileName)
}

// DocumentPath resolves the input document relative to the project dir.
func (c *Config) DocumentPath() string { return c.resolve(c.Settings.Paths.Document) }

// InstructionPath resolves the instruction file relative to the project dir.
func (c *Config) InstructionPath() string { return c.resolve(c.Settings.Paths.Instruction) }

// OutputPath resolves the output file relative to the project dir.
func (c *Config) OutputPath() string { return c.resolve(c.Settings.Paths.Output) }

// APIKey reads the generation API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Settings.Model.APIKeyEnv)
}

// Level returns the settings for one delegation level.
func (c *Config) Level(level document.Level) LevelConfig {
	switch level {
	case document.LevelDocument:
		return c.Settings.Levels.Document
	case document.LevelSection:
		return c.Settings.Levels.Section
	case document.LevelSubsection:
		return c.Settings.Levels.Subsection
	default:
		return c.Settings.Levels.Block
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	for level := document.LevelDocument; level <= document.LevelBlock; level++ {
		lc := c.Level(level)
		if lc.Candidates < 1 {
			return fmt.Errorf("config: %s level needs at least one candidate producer", level)
		}
		if lc.MaxIterations < 1 {
			return fmt.Errorf("config: %s level needs at least one iteration", level)
		}
	}
	if c.Settings.Review.Reviewers < 1 {
		return fmt.Errorf("config: at least one reviewer is required")
	}
	if !c.Settings.Run.Sequential && c.Settings.Run.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be positive in parallel mode")
	}
	if c.Settings.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry max_attempts must be positive")
	}
	if c.Settings.Labels.Length < 1 {
		return fmt.Errorf("config: label length must be positive")
	}
	return nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

func (c *Config) loadRunSettings() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c.Settings); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func defaultRunSettings() RunSettings {
	var settings RunSettings
	// The default YAML is the single source of default values.
	if err := yaml.Unmarshal([]byte(defaultRunConfigYAML), &settings); err != nil {
		panic(fmt.Sprintf("config: invalid default config: %v", err))
	}
	return settings
}

func ensureRunConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultRunConfigYAML), 0644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}
