package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/manifest"
)

var optDir string
var optNamespace string
var optModules string
var optFormat string
var optConfig string

func init() {
	flag.StringVar(&optDir, "dir", "", "package directory (default: the package name)")
	flag.StringVar(&optNamespace, "namespace", "", "native namespace (default: the package name)")
	flag.StringVar(&optModules, "modules", "", "comma-separated module names (default: the package name)")
	flag.StringVar(&optFormat, "format", "json", "manifest format (json, yaml, toml)")
	flag.StringVar(&optConfig, "config", "bindgen.toml", "generator configuration to create if it does not exist")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: bindgen-init <package name> [version] [options...]

options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(),
			`
examples:
  bindgen-init Atomic
  	Create ./Atomic/Package.json with a single module "Atomic"
  bindgen-init AtomicEditor v1.0.0 -modules Editor,Import -format yaml
  	Create ./AtomicEditor/Package.yaml at version 1.0.0 with two modules

Every module gets a manifest whose headers default to <module>/*.h; fill
in the classes, interfaces and enums to bind, then run bindgen.
`)
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		ok :=
			(r >= 'A' && r <= 'Z') ||
				(r >= 'a' && r <= 'z') ||
				(r >= '0' && r <= '9') ||
				r == '_'
		return !ok
	})
}

func main() {
	var optName, optVer string
	flag.Parse()
	{
		switch flag.NArg() {
		case 2:
			optVer = flag.Arg(1)
			fallthrough
		case 1:
			optName = flag.Arg(0)
		default:
			fmt.Println("Error:", "expected package name (e.g. bindgen-init Atomic)")
			fmt.Println()
			flag.Usage()
			fmt.Println()
			os.Exit(1)
		}
	}

	if !isIdent(optName) {
		fmt.Println("Error:", "package name can only contain a-z, A-Z, 0-9 and _")
		os.Exit(1)
	}
	if optVer != "" && !semver.IsValid(optVer) {
		fmt.Printf("Error: invalid version %q: must be semantic, e.g. v1.2.3\n", optVer)
		os.Exit(1)
	}
	ext := "." + strings.ToLower(optFormat)
	if !slices.Contains(manifest.Extensions, ext) {
		fmt.Printf("Error: unsupported format %q\n", optFormat)
		os.Exit(1)
	}
	if optDir == "" {
		optDir = optName
	}
	if optNamespace == "" {
		optNamespace = optName
	}
	modules := []string{optName}
	if optModules != "" {
		modules = strings.Split(optModules, ",")
		for i, m := range modules {
			modules[i] = strings.TrimSpace(m)
			if !isIdent(modules[i]) {
				fmt.Printf("Error: invalid module name %q\n", m)
				os.Exit(1)
			}
		}
	}

	if p, err := manifest.FindPackage(optDir); err == nil {
		fmt.Printf("Error: \"%v\" already exists. Use the -dir option to use a different package directory.\n", p)
		os.Exit(1)
	}
	if err := os.MkdirAll(optDir, os.ModePerm); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	write := func(name string, v any) {
		path := filepath.Join(optDir, name+ext)
		data, err := manifest.Encode(ext, v)
		if err != nil {
			fmt.Printf("Error encoding %v: %v\n", path, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0666); err != nil {
			fmt.Printf("Error writing %v: %v\n", path, err)
			os.Exit(1)
		}
	}

	write(manifest.PackageBaseName, &manifest.Package{
		Name:          optName,
		Namespace:     optNamespace,
		Version:       optVer,
		Platforms:     []string{},
		Dependencies:  []string{},
		Modules:       modules,
		ModuleExclude: map[string][]string{},
		Bindings:      []string{"script", "managed"},
		DotnetModules: []string{},
	})
	for _, m := range modules {
		write(m, &manifest.Module{
			Name:         m,
			Headers:      []string{m + "/*.h"},
			Classes:      []string{},
			Interfaces:   []string{},
			Enums:        []string{},
			NumberArrays: []string{},
			Renames:      map[string]string{},
			Excludes:     map[string][]string{},
			Events:       []string{},
		})
	}

	if _, err := os.Lstat(optConfig); err == nil {
		fmt.Printf("Keeping existing %v\n", optConfig)
	} else {
		c := config.Default()
		c.Types.StripNamespaces = []string{optNamespace}
		if err := config.Save(optConfig, c); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Successfully set up package %v with %v modules in %v!\n", optName, len(modules), optDir)
	fmt.Printf("You may now list the symbols to bind and run \"bindgen %v\".\n", optDir)
}
