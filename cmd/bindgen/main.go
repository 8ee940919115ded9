package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nativebind/bindgen"
	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
)

var (
	optSymbols   string
	optOut       string
	optConfig    string
	optLogLevel  string
	optRootsOnly bool
	optDryRun    bool
	optStats     bool
	optDump      string
	optDOT       string
)

func init() {
	flag.StringVar(&optSymbols, "symbols", "symbols", "directory holding the symbol-tree documents of all headers")
	flag.StringVar(&optOut, "out", "generated", "destination directory of the generated bindings")
	flag.StringVar(&optConfig, "config", "bindgen.toml", "generator configuration; defaults are used if the file does not exist")
	flag.StringVar(&optLogLevel, "loglevel", "warn", "minimum log level (info, warn, error)")
	flag.BoolVar(&optRootsOnly, "roots-only", false, "generate bindings only for the named packages, not their dependencies")
	flag.BoolVar(&optDryRun, "dry-run", false, "generate but do not write any files")
	flag.BoolVar(&optStats, "stats", false, "print binding and timing stats")
	flag.StringVar(&optDump, "dump", "", "dump the loaded binding graph to `file` (- for stdout)")
	flag.StringVar(&optDOT, "dot", "", "write the package dependency graph in DOT format to `file` (- for stdout)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: bindgen [options...] <package manifest>...

options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(),
			`
examples:
  bindgen -symbols build/symbols -out Source/Generated Atomic
  	Generate bindings for the package in ./Atomic and all its dependencies
  bindgen -roots-only -stats AtomicEditor/Package.json
  	Generate bindings only for AtomicEditor and print stats
`)
	}
}

// printError prints the long form of err if it has one.
func printError(err error) {
	var cErr *config.Error
	var mErr *manifest.Error
	switch {
	case errors.As(err, &cErr):
		fmt.Fprintln(os.Stderr, "Error:", cErr.String())
	case errors.As(err, &mErr):
		fmt.Fprintln(os.Stderr, "Error:", mErr.String())
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

// openOutput opens path for writing, with "-" meaning stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Error:", "expected at least one package manifest")
		fmt.Println()
		flag.Usage()
		os.Exit(1)
	}

	level, ok := logger.ParseLevel(optLogLevel)
	if !ok {
		fmt.Printf("Error: invalid log level %q\n", optLogLevel)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, "bindgen:", level)

	cfg, err := config.Load(optConfig)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	opts := bindgen.Options{
		Manifests:  flag.Args(),
		SymbolRoot: optSymbols,
		Dest:       optOut,
		Config:     cfg,
		Log:        log,
		RootsOnly:  optRootsOnly,
		DryRun:     optDryRun,
	}
	if optStats {
		opts.Stats = os.Stdout
	}
	for _, o := range []struct {
		path string
		w    *io.Writer
	}{
		{optDump, &opts.Dump},
		{optDOT, &opts.DOT},
	} {
		if o.path == "" {
			continue
		}
		f, err := openOutput(o.path)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		defer f.Close()
		*o.w = f
	}

	res, err := bindgen.Run(opts)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !optDryRun {
		fmt.Printf("Wrote %v binding files for %v packages to %v\n", len(res.Files), len(res.Packages), optOut)
	}
}
