package recipe

import (
	"sort"

	"github.com/rotisserie/eris"
)

// SCM describes where the recipe's sources come from. "auto" for URL or Revision means they're taken from the
// local checkout.
type SCM struct {
	Type      string
	URL       string
	Revision  string
	Submodule string
}

// Auto is the placeholder value that SCM fields resolve from the local checkout.
const Auto = "auto"

// Descriptor is the static declaration of one buildable unit.
type Descriptor struct {
	Name        string
	License     string
	URL         string
	Description string
	Topics      []string

	// Settings lists the platform axes the recipe depends on.
	Settings []string

	Options        map[string]OptionDomain
	DefaultOptions OptionValues

	Requires      []Reference
	BuildRequires []Reference

	BuildPolicy string
	Generators  []string
	SCM         SCM

	// CMakeVariables maps option names to the CMake variables generate() writes for them.
	CMakeVariables map[string]string
}

var knownSettings = map[string]bool{
	"os":         true,
	"compiler":   true,
	"build_type": true,
	"arch":       true,
}

// Validate checks the static invariants of the descriptor.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return eris.New("recipe has no name")
	}

	for _, setting := range d.Settings {
		if !knownSettings[setting] {
			return eris.Errorf("unknown setting %s", setting)
		}
	}

	for name, value := range d.DefaultOptions {
		domain, ok := d.Options[name]
		if !ok {
			return &ValidationError{Option: name, Value: value, Reason: "has a default but is not declared"}
		}

		if !domain.Contains(value) {
			return &ValidationError{Option: name, Value: value, Legal: domain}
		}
	}

	for option, variable := range d.CMakeVariables {
		if _, ok := d.Options[option]; !ok {
			return eris.Errorf("CMake variable %s refers to the unknown option %s", variable, option)
		}
	}

	seen := map[string]bool{}
	for _, list := range [][]Reference{d.Requires, d.BuildRequires} {
		for _, ref := range list {
			// references built by hand skipped ParseReference; re-check them here
			if _, err := ParseReference(ref.String()); err != nil {
				return err
			}

			if seen[ref.Name] {
				return eris.Errorf("%s is required more than once", ref.Name)
			}
			seen[ref.Name] = true
		}
	}

	return nil
}

// OptionNames returns the declared options in sorted order.
func (d *Descriptor) OptionNames() []string {
	names := make([]string, 0, len(d.Options))
	for name := range d.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveOptions applies overrides on top of the defaults. Every value is checked against its legal set, which
// makes this the fail-fast point before configure() runs.
func (d *Descriptor) ResolveOptions(overrides map[string]string) (OptionValues, error) {
	for name, value := range overrides {
		domain, ok := d.Options[name]
		if !ok {
			return nil, &ValidationError{Option: name, Value: value, Legal: d.OptionNames(), Reason: "is not declared by " + d.Name}
		}

		if !domain.Contains(value) {
			return nil, &ValidationError{Option: name, Value: value, Legal: domain}
		}
	}

	result := make(OptionValues, len(d.Options))
	for _, name := range d.OptionNames() {
		domain := d.Options[name]

		value, ok := overrides[name]
		if !ok {
			value, ok = d.DefaultOptions[name]
		}

		if !ok {
			return nil, &ValidationError{Option: name, Legal: domain, Reason: "has neither a default nor a value"}
		}

		value = NormalizeValue(value)
		if !domain.Contains(value) {
			return nil, &ValidationError{Option: name, Value: value, Legal: domain}
		}
		result[name] = value
	}

	return result, nil
}
