// Package config holds the generator configuration.
//
// A configuration file is TOML. It may import other configuration files,
// whose settings are merged into the importing file; settings the
// importing file leaves unset fall back to [Default].
package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"dario.cat/mergo"
	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"
)

// Types configures the names the type converter treats specially.
type Types struct {
	// Class that VariantVector elements refer to.
	VariantClass string `toml:"variant-class"`
	// Type name converted to a vector of VariantClass.
	VariantVector string `toml:"variant-vector"`
	// Identifier converted to an opaque native handle.
	OpaqueHandle string `toml:"opaque-handle"`
	// Plain-old-data vector alias, converted like Vector.
	PODVector string `toml:"pod-vector"`
	// Root of the reference-counted hierarchy; it never gets a
	// synthesized constructor.
	RefCountedRoot string `toml:"refcounted-root"`
	// Namespace qualifiers stripped from named types in addition to the
	// loading package's own namespace.
	StripNamespaces []string `toml:"strip-namespaces"`
}

type Rule struct {
	Select struct {
		Package *regexp.Regexp `toml:"package"`
		Class   *regexp.Regexp `toml:"class"`
		Name    *regexp.Regexp `toml:"name"`
		Type    string         `toml:"type"`
	} `toml:"select"`
	Actions struct {
		Include  *bool  `toml:"include"`
		Rename   string `toml:"rename"`
		ToCasing string `toml:"to-casing"`
		// Restricts include to the listed binding targets
		// ("script", "managed"). Empty means all targets.
		Targets []string `toml:"targets"`
	} `toml:"action"`
}

type Config struct {
	Imports []string `toml:"imports"`
	Types   Types    `toml:"types"`
	// Platform tag to native compile-time guard predicate.
	PlatformGuards map[string]string `toml:"platform-guards"`
	Rules          []Rule            `toml:"rule"`
}

// Default returns the configuration used for settings no file sets.
func Default() *Config {
	return &Config{
		Types: Types{
			VariantClass:   "Variant",
			VariantVector:  "VariantVector",
			OpaqueHandle:   "VoidPtr",
			PODVector:      "PODVector",
			RefCountedRoot: "RefCounted",
		},
		PlatformGuards: map[string]string{
			"windows": "ATOMIC_PLATFORM_WINDOWS",
			"macosx":  "ATOMIC_PLATFORM_OSX",
			"linux":   "ATOMIC_PLATFORM_LINUX",
			"android": "ATOMIC_PLATFORM_ANDROID",
			"ios":     "ATOMIC_PLATFORM_IOS",
			"web":     "ATOMIC_PLATFORM_WEB",
		},
	}
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Load reads the configuration at path, resolves its imports relative
// to the file's directory and fills in defaults.
func Load(path string) (*Config, error) {
	c, err := load(path, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(c, Default()); err != nil {
		return nil, &Error{filePath: path, err: err}
	}
	return c, nil
}

// Save writes c to path as TOML, replacing any existing file at once.
func Save(path string, c *Config) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return &Error{filePath: path, err: err}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return &Error{filePath: path, err: err}
	}
	return nil
}

var errImportCycle = errors.New("import cycle")

func load(path string, visiting map[string]bool) (_ *Config, err error) {
	defer func() {
		if err != nil {
			if cErr := (&Error{}); errors.As(err, &cErr) {
				return
			}
			if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else {
				err = &Error{filePath: path, err: err}
			}
		}
	}()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if visiting[abs] {
		return nil, errImportCycle
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	err = toml.NewDecoder(bytes.NewReader(file)).
		DisallowUnknownFields().
		Decode(c)
	if err != nil {
		return nil, err
	}

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(filepath.Dir(path), imp)
		}
		newC, err := load(imp, visiting)
		if err != nil {
			return nil, err
		}
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}

	return c, nil
}
