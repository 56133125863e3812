// Package drivercfg implements bassgo's TOML-backed configuration,
// ported directly in shape from the teacher's config/config.go
// (BurntSushi/toml, a Config struct with nested sections and a
// DefaultConfig constructor, a platform config path, Load/Save pair).
package drivercfg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds assembler-level defaults that the CLI driver applies
// before Source/Assemble runs, and that a source program's own
// directives (`architecture`, `endian`, ...) may still override.
type Config struct {
	// Assembler settings: the default architecture adapter and strict
	// mode, applied unless the CLI passes -arch/-strict explicitly.
	Assembler struct {
		DefaultArchitecture string `toml:"default_architecture"`
		Strict              bool   `toml:"strict"`
	} `toml:"assembler"`

	// Display settings: whether stderr diagnostics are colorized.
	// NumberFormat is loaded and saved but not consulted: `print` always
	// renders bare numeric items in decimal.
	Display struct {
		NumberFormat string `toml:"number_format"` // dec, hex
		ColorOutput  bool   `toml:"color_output"`
	} `toml:"display"`

	// Paths settings: search directory lists that are loaded and saved
	// but not consulted; `architecture`, `insert`, and `include` do not
	// search them.
	Paths struct {
		ArchitectureSearch []string `toml:"architecture_search"`
		IncludeSearch      []string `toml:"include_search"`
	} `toml:"paths"`
}

// DefaultConfig returns a Config with bassgo's built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Assembler.DefaultArchitecture = "none"
	cfg.Assembler.Strict = false
	cfg.Display.NumberFormat = "dec"
	cfg.Display.ColorOutput = true
	cfg.Paths.ArchitectureSearch = []string{"bass/architectures"}
	cfg.Paths.IncludeSearch = nil
	return cfg
}

// GetConfigPath returns the platform-specific config file path,
// mirroring the teacher's GetConfigPath exactly (same XDG-ish layout,
// same env-var fallbacks), renamed for this tool's own directory name.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "bassgo")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bassgo.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "bassgo")

	default:
		return "bassgo.toml"
	}

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return "bassgo.toml"
	}
	return filepath.Join(configDir, "bassgo.toml")
}

// Load loads configuration from the default config file, returning
// defaults unmodified when no file exists yet.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, returning defaults
// unmodified when path doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes the configuration to path, creating its directory if
// necessary.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user-chosen config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
