package drivercfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "none", cfg.Assembler.DefaultArchitecture)
	require.False(t, cfg.Assembler.Strict)
	require.Equal(t, "dec", cfg.Display.NumberFormat)
	require.True(t, cfg.Display.ColorOutput)
	require.Equal(t, []string{"bass/architectures"}, cfg.Paths.ArchitectureSearch)
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bassgo.toml")

	cfg := DefaultConfig()
	cfg.Assembler.DefaultArchitecture = "generic8"
	cfg.Assembler.Strict = true
	cfg.Display.NumberFormat = "hex"
	require.NoError(t, cfg.SaveTo(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
