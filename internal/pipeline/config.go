package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Filename of the optional build config within a project directory.
const ConfigFilename = "crated.yaml"

const (

	// Base image for the builder stage. Carries the full Rust toolchain;
	// none of it survives into the output image.
	defaultBuilderImage = "docker.io/library/rust:1.83-slim-bookworm"

	// Working directory for the build inside the builder container.
	defaultBuilderWorkdir = "/build"

	// Base image for the runtime stage. Supplies the C runtime library and
	// nothing the build needs.
	defaultRuntimeImage = "docker.io/library/debian:bookworm-slim"

	// Directory the binary is installed to in the output image. On the
	// default PATH, so the startup action can name the bare binary.
	defaultInstallDir = "/usr/local/bin"
)

// Build-time parameters for the two stages.
//
// All fields are declared, not runtime-configurable: they are fixed when the
// plan is synthesized and identical inputs yield identical plans.
type Config struct {
	Builder BuilderConfig `yaml:"builder"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// Parameters of the builder stage.
type BuilderConfig struct {
	Image   string `yaml:"image"`   // Base image with the Rust toolchain.
	Workdir string `yaml:"workdir"` // Build directory inside the container.
}

// Parameters of the runtime stage.
type RuntimeConfig struct {
	Image      string   `yaml:"image"`       // Minimal base image.
	TLS        *bool    `yaml:"tls"`         // Override TLS linkage detection. Nil defers to the lock file.
	Packages   []string `yaml:"packages"`    // Extra runtime library packages to install.
	InstallDir string   `yaml:"install_dir"` // Directory the binary is installed to.
}

// Returns the default build configuration.
func DefaultConfig() Config {
	return Config{
		Builder: BuilderConfig{
			Image:   defaultBuilderImage,
			Workdir: defaultBuilderWorkdir,
		},
		Runtime: RuntimeConfig{
			Image:      defaultRuntimeImage,
			InstallDir: defaultInstallDir,
		},
	}
}

// Loads a build config file, filling unset fields with defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return cfg.withDefaults(), nil
}

// Loads the project's build config, or the defaults when the project has no
// config file.
func ProjectConfig(dir string) (Config, error) {
	path := filepath.Join(dir, ConfigFilename)
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// Returns a copy of the config with unset fields replaced by defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Builder.Image == "" {
		c.Builder.Image = def.Builder.Image
	}
	if c.Builder.Workdir == "" {
		c.Builder.Workdir = def.Builder.Workdir
	}
	if c.Runtime.Image == "" {
		c.Runtime.Image = def.Runtime.Image
	}
	if c.Runtime.InstallDir == "" {
		c.Runtime.InstallDir = def.Runtime.InstallDir
	}

	return c
}
