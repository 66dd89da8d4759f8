// Package templates loads template profiles from YAML and merges them over
// the built-in profiles.
package templates

import (
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tabconv/domain/template"
	"tabconv/internal/errors"
)

// File is the on-disk shape of a profiles file
type File struct {
	Profiles []template.Profile `yaml:"profiles" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Builtin returns the profiles shipped with the converter
func Builtin() []template.Profile {
	return []template.Profile{template.CostSheet()}
}

// Load returns the built-in profiles overlaid with those in path. An empty
// path yields the built-ins alone.
func Load(path string) ([]template.Profile, error) {
	if path == "" {
		return Builtin(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigInvalid("template profiles file not found: " + path)
		}
		return nil, errors.Wrapf(err, "open template profiles %s", path)
	}
	defer file.Close()

	custom, err := Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "template profiles %s", path)
	}
	return Merge(Builtin(), custom), nil
}

// Parse decodes and validates a profiles document
func Parse(r io.Reader) ([]template.Profile, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.ConfigInvalid("invalid YAML: " + err.Error())
	}
	if err := validate.Struct(&f); err != nil {
		return nil, errors.ConfigInvalid("invalid template profile: " + err.Error())
	}

	seen := make(map[string]bool, len(f.Profiles))
	for _, p := range f.Profiles {
		key := strings.ToLower(p.Name)
		if seen[key] {
			return nil, errors.ConfigInvalid("duplicate template profile: " + p.Name)
		}
		seen[key] = true
	}
	return f.Profiles, nil
}

// Merge replaces base profiles by name and appends new ones. Custom profiles
// that reuse a base name keep the base position so match precedence is stable.
func Merge(base, custom []template.Profile) []template.Profile {
	merged := make([]template.Profile, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[strings.ToLower(p.Name)] = i
	}
	for _, p := range custom {
		if i, ok := index[strings.ToLower(p.Name)]; ok {
			merged[i] = p
			continue
		}
		index[strings.ToLower(p.Name)] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
