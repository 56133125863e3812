// Command bassasm is bassgo's CLI entry point: a thin flag-parsing
// wrapper around internal/driver, mirroring the teacher's main.go
// flag style (package flag, a Version/Commit/Date ldflags trio, a
// printHelp function) scaled down to this tool's own surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/retrotool/bassgo/internal/diag"
	"github.com/retrotool/bassgo/internal/driver"
	"github.com/retrotool/bassgo/internal/drivercfg"
	"github.com/retrotool/bassgo/internal/tui"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// defineFlags collects repeated `-D name=value` flags, mirroring
// bass's CLI-level `-define` contract (spec.md §6's Driver.Define).
type defineFlags []string

func (d *defineFlags) String() string { return strings.Join(*d, ",") }
func (d *defineFlags) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bassasm", flag.ContinueOnError)

	var (
		output      = fs.String("o", "", "output binary file (default: stdout, when not a terminal)")
		archName    = fs.String("arch", "", "architecture adapter name (default: config/none)")
		strict      = fs.Bool("strict", false, "promote warnings to fatal errors")
		browse      = fs.Bool("browse", false, "launch the interactive program/symbol browser after assembly")
		configPath  = fs.String("config", "", "load a drivercfg.Config TOML file (default: platform config path)")
		showVersion = fs.Bool("version", false, "show version information")
		defines     defineFlags
	)
	fs.Var(&defines, "D", "pre-seed a global define, name=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("bassasm %s (commit %s, built %s)\n", Version, Commit, Date)
		return 0
	}

	if fs.NArg() == 0 {
		printHelp(fs)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	color.NoColor = color.NoColor || !cfg.Display.ColorOutput

	d := driver.New()
	d.OutputPath = *output
	d.ArchitectureName = *archName
	if d.ArchitectureName == "" {
		d.ArchitectureName = cfg.Assembler.DefaultArchitecture
	}

	for _, raw := range defines {
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "error: malformed -D %q, expected name=value\n", raw)
			return 2
		}
		d.Define(name, value)
	}

	for _, path := range fs.Args() {
		if err := d.Source(path); err != nil {
			diag.Fprint(os.Stderr, asDiagError(err))
			return 1
		}
	}

	effectiveStrict := *strict || cfg.Assembler.Strict
	ok := d.Assemble(effectiveStrict)
	diag.FprintAll(os.Stderr, d.Diags)

	if *browse {
		if err := tui.New(d).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "error: browser: %v\n", err)
			return 1
		}
	}

	if !ok {
		return 1
	}
	return 0
}

func loadConfig(path string) (*drivercfg.Config, error) {
	if path == "" {
		return drivercfg.Load()
	}
	return drivercfg.LoadFrom(path)
}

func asDiagError(err error) *diag.Error {
	if de, ok := err.(*diag.Error); ok {
		return de
	}
	return diag.New(diag.Position{}, diag.CategoryIO, "", "%v", err)
}

func printHelp(fs *flag.FlagSet) {
	fmt.Printf(`bassasm %s - a table-driven, retargetable cross-assembler

Usage: bassasm [options] <source-file> [source-file...]

Options:
`, Version)
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  bassasm -o rom.bin -arch generic8 -D VERSION=3 main.bass")
}
