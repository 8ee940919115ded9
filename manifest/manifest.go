// Package manifest reads package and module manifests.
//
// A package manifest is named Package.json, Package.yaml, Package.yml or
// Package.toml. Each module it lists has its own manifest next to it,
// named after the module. Unknown fields are rejected in every format.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Extensions lists the recognized manifest extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

const PackageBaseName = "Package"

type Package struct {
	Name      string   `json:"name" yaml:"name" toml:"name"`
	Namespace string   `json:"namespace" yaml:"namespace" toml:"namespace"`
	Version   string   `json:"version" yaml:"version" toml:"version"`
	Platforms []string `json:"platforms" yaml:"platforms" toml:"platforms"`
	// Dependencies are manifest paths relative to this manifest's
	// directory, optionally followed by "@vX.Y.Z".
	Dependencies []string `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	Modules      []string `json:"modules" yaml:"modules" toml:"modules"`
	// ModuleExclude maps a platform tag to the modules not built for it.
	ModuleExclude map[string][]string `json:"moduleExclude" yaml:"moduleExclude" toml:"moduleExclude"`
	// Bindings is a subset of {"script", "managed"}; empty means both.
	Bindings      []string `json:"bindings" yaml:"bindings" toml:"bindings"`
	DotnetModules []string `json:"dotnetModules" yaml:"dotnetModules" toml:"dotnetModules"`

	// Path is the absolute manifest path, set at load time.
	Path string `json:"-" yaml:"-" toml:"-"`
}

// Dir returns the directory containing the manifest.
func (p *Package) Dir() string { return filepath.Dir(p.Path) }

// Targets reports which binding targets are enabled.
func (p *Package) Targets() (script, managed bool) {
	if len(p.Bindings) == 0 {
		return true, true
	}
	return slices.Contains(p.Bindings, "script"), slices.Contains(p.Bindings, "managed")
}

// ExcludedOn returns the platform tags module is excluded on, sorted.
func (p *Package) ExcludedOn(module string) []string {
	var res []string
	for platform, modules := range p.ModuleExclude {
		if slices.Contains(modules, module) {
			res = append(res, platform)
		}
	}
	slices.Sort(res)
	return res
}

func (p *Package) validate() error {
	if p.Name == "" {
		return errors.New("missing package name")
	}
	if p.Version != "" && !semver.IsValid(p.Version) {
		return fmt.Errorf("invalid version %v: must be semantic, e.g. v1.2.3", strconv.Quote(p.Version))
	}
	for _, b := range p.Bindings {
		if b != "script" && b != "managed" {
			return fmt.Errorf("unknown binding target %v", strconv.Quote(b))
		}
	}
	seen := map[string]bool{}
	for _, m := range p.Modules {
		if seen[m] {
			return fmt.Errorf("duplicate module %v", strconv.Quote(m))
		}
		seen[m] = true
	}
	for _, m := range p.DotnetModules {
		if !seen[m] {
			return fmt.Errorf("dotnet module %v is not a module of the package", strconv.Quote(m))
		}
	}
	for _, dep := range p.Dependencies {
		if _, _, err := ParseDependency(dep); err != nil {
			return err
		}
	}
	return nil
}

type Module struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Headers are header paths or glob patterns.
	Headers      []string `json:"headers" yaml:"headers" toml:"headers"`
	Classes      []string `json:"classes" yaml:"classes" toml:"classes"`
	Interfaces   []string `json:"interfaces" yaml:"interfaces" toml:"interfaces"`
	Enums        []string `json:"enums" yaml:"enums" toml:"enums"`
	NumberArrays []string `json:"numberArrays" yaml:"numberArrays" toml:"numberArrays"`
	// Renames maps a native class name to its bound name.
	Renames map[string]string `json:"renames" yaml:"renames" toml:"renames"`
	// Excludes maps a native class name to functions left unbound.
	Excludes map[string][]string `json:"excludes" yaml:"excludes" toml:"excludes"`
	Events   []string            `json:"events" yaml:"events" toml:"events"`

	Path string `json:"-" yaml:"-" toml:"-"`
}

// Error is a missing, unreadable or invalid manifest.
type Error struct {
	Path   string
	Err    error  // short, single-line error
	Detail string // full, multi-line error string, or empty
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.Detail != "" {
		return "Error in manifest " + strconv.Quote(e.Path) + ":\n" + e.Detail
	}
	return e.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(path string, err error) error {
	if err == nil {
		return nil
	}
	if mErr := (&Error{}); errors.As(err, &mErr) {
		return err
	}
	res := &Error{Path: path, Err: err}
	if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
		res.Detail = tErr.String()
	} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
		res.Detail = tErr.String()
	}
	return res
}

// ErrNotFound is returned when no manifest with a recognized extension
// exists.
var ErrNotFound = errors.New("manifest not found")

// find resolves base (a path without extension) to an existing manifest.
func find(base string) (string, error) {
	for _, ext := range Extensions {
		p := base + ext
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// FindPackage resolves path to a package manifest file. path is either
// the manifest itself or a directory containing one.
func FindPackage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", wrapError(path, err)
	}
	if !fi.IsDir() {
		return filepath.Abs(path)
	}
	p, err := find(filepath.Join(path, PackageBaseName))
	if err != nil {
		return "", wrapError(path, err)
	}
	return filepath.Abs(p)
}

// LoadPackage finds, decodes and validates a package manifest.
func LoadPackage(path string) (*Package, error) {
	p, err := FindPackage(path)
	if err != nil {
		return nil, err
	}
	var res Package
	if err := decodeFile(p, &res); err != nil {
		return nil, err
	}
	res.Path = p
	if err := res.validate(); err != nil {
		return nil, wrapError(p, err)
	}
	return &res, nil
}

// LoadModule loads the manifest of module name from dir.
func LoadModule(dir, name string) (*Module, error) {
	p, err := find(filepath.Join(dir, name))
	if err != nil {
		return nil, wrapError(filepath.Join(dir, name), fmt.Errorf("module %v: %w", name, err))
	}
	var res Module
	if err := decodeFile(p, &res); err != nil {
		return nil, err
	}
	res.Path = p
	if res.Name == "" {
		res.Name = name
	} else if res.Name != name {
		return nil, wrapError(p, fmt.Errorf("module manifest declares name %v, expected %v",
			strconv.Quote(res.Name), strconv.Quote(name)))
	}
	return &res, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wrapError(path, err)
	}
	return wrapError(path, Decode(filepath.Ext(path), data, v))
}

// Decode decodes data in the format given by ext, rejecting unknown
// fields.
func Decode(ext string, data []byte, v any) error {
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		return toml.NewDecoder(bytes.NewReader(data)).
			DisallowUnknownFields().
			Decode(v)
	default:
		return fmt.Errorf("unsupported manifest format %v", strconv.Quote(ext))
	}
}

// Encode encodes v in the format given by ext. Empty fields are kept so
// that scaffolded manifests show every setting.
func Encode(ext string, v any) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	case ".toml":
		return toml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported manifest format %v", strconv.Quote(ext))
	}
}

// ParseDependency splits a dependency reference of the form "path" or
// "path@vX.Y.Z".
func ParseDependency(ref string) (path, version string, err error) {
	path, version, found := strings.Cut(ref, "@")
	if path == "" {
		return "", "", fmt.Errorf("dependency %v: empty path", strconv.Quote(ref))
	}
	if found && !semver.IsValid(version) {
		return "", "", fmt.Errorf("dependency %v: invalid version %v", strconv.Quote(ref), strconv.Quote(version))
	}
	return path, version, nil
}

// SatisfiesVersion reports whether a package declaring version have
// fulfils a dependency requesting want. An empty want is always
// satisfied.
func SatisfiesVersion(have, want string) bool {
	if want == "" {
		return true
	}
	return semver.IsValid(have) && semver.Compare(have, want) >= 0
}

// Guards maps platform tags to guard predicates using guards. Tags
// without a predicate are returned in unknown.
func Guards(platforms []string, guards map[string]string) (preds []string, unknown []string) {
	for _, p := range platforms {
		pred, ok := guards[p]
		if !ok {
			unknown = append(unknown, p)
			continue
		}
		if !slices.Contains(preds, pred) {
			preds = append(preds, pred)
		}
	}
	return preds, unknown
}
