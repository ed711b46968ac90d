package recipe

import (
	"io/ioutil"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type yamlSCM struct {
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	Revision  string `yaml:"revision"`
	Submodule string `yaml:"submodule"`
}

type yamlDescriptor struct {
	Name           string                   `yaml:"name"`
	License        string                   `yaml:"license"`
	URL            string                   `yaml:"url"`
	Description    string                   `yaml:"description"`
	Topics         []string                 `yaml:"topics"`
	Settings       []string                 `yaml:"settings"`
	Options        map[string][]interface{} `yaml:"options"`
	DefaultOptions map[string]interface{}   `yaml:"default_options"`
	Requires       []string                 `yaml:"requires"`
	BuildRequires  []string                 `yaml:"build_requires"`
	BuildPolicy    string                   `yaml:"build_policy"`
	Generators     []string                 `yaml:"generators"`
	SCM            *yamlSCM                 `yaml:"scm"`
	CMakeVariables map[string]string        `yaml:"cmake_variables"`
}

// ParseYAML decodes a descriptor from YAML and validates it.
func ParseYAML(data []byte) (*Descriptor, error) {
	var raw yamlDescriptor
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode recipe")
	}

	d := &Descriptor{
		Name:           raw.Name,
		License:        raw.License,
		URL:            raw.URL,
		Description:    raw.Description,
		Topics:         raw.Topics,
		Settings:       raw.Settings,
		Options:        make(map[string]OptionDomain, len(raw.Options)),
		DefaultOptions: make(OptionValues, len(raw.DefaultOptions)),
		BuildPolicy:    raw.BuildPolicy,
		Generators:     raw.Generators,
		CMakeVariables: raw.CMakeVariables,
	}

	for name, values := range raw.Options {
		d.Options[name] = Domain(values...)
	}

	for name, value := range raw.DefaultOptions {
		d.DefaultOptions[name] = NormalizeValue(value)
	}

	if raw.SCM != nil {
		d.SCM = SCM(*raw.SCM)
	}

	d.Requires, err = ParseReferences(raw.Requires)
	if err != nil {
		return nil, eris.Wrap(err, "invalid requires")
	}

	d.BuildRequires, err = ParseReferences(raw.BuildRequires)
	if err != nil {
		return nil, eris.Wrap(err, "invalid build_requires")
	}

	err = d.Validate()
	if err != nil {
		return nil, err
	}

	return d, nil
}

// LoadYAML reads a descriptor file.
func LoadYAML(filename string) (*Descriptor, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	d, err := ParseYAML(data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load %s", filename)
	}

	return d, nil
}

// yamlValue turns normalized booleans back into YAML booleans
func yamlValue(value string) interface{} {
	switch value {
	case "True":
		return true
	case "False":
		return false
	}
	return value
}

// ToYAML encodes a descriptor in the format ParseYAML reads.
func ToYAML(d *Descriptor) ([]byte, error) {
	raw := yamlDescriptor{
		Name:           d.Name,
		License:        d.License,
		URL:            d.URL,
		Description:    d.Description,
		Topics:         d.Topics,
		Settings:       d.Settings,
		Options:        make(map[string][]interface{}, len(d.Options)),
		DefaultOptions: make(map[string]interface{}, len(d.DefaultOptions)),
		BuildPolicy:    d.BuildPolicy,
		Generators:     d.Generators,
		CMakeVariables: d.CMakeVariables,
	}

	for name, domain := range d.Options {
		values := make([]interface{}, len(domain))
		for idx, value := range domain {
			values[idx] = yamlValue(value)
		}
		raw.Options[name] = values
	}

	for name, value := range d.DefaultOptions {
		raw.DefaultOptions[name] = yamlValue(value)
	}

	for _, ref := range d.Requires {
		raw.Requires = append(raw.Requires, ref.String())
	}
	for _, ref := range d.BuildRequires {
		raw.BuildRequires = append(raw.BuildRequires, ref.String())
	}

	if d.SCM != (SCM{}) {
		scm := yamlSCM(d.SCM)
		raw.SCM = &scm
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode recipe")
	}
	return data, nil
}
