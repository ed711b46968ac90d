package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// OptionDomain lists the legal values of an option.
type OptionDomain []string

// OptionValues maps option names to their (normalized) value.
type OptionValues map[string]string

// NormalizeValue converts the different spellings of booleans to True and False and leaves everything
// else untouched.
func NormalizeValue(value interface{}) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		switch strings.ToLower(v) {
		case "true":
			return "True"
		case "false":
			return "False"
		}
		return v
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}

// Domain builds an OptionDomain from bools, strings or numbers.
func Domain(values ...interface{}) OptionDomain {
	result := make(OptionDomain, len(values))
	for idx, value := range values {
		result[idx] = NormalizeValue(value)
	}
	return result
}

// Contains reports whether value is legal for this domain.
func (d OptionDomain) Contains(value string) bool {
	value = NormalizeValue(value)
	for _, item := range d {
		if item == value {
			return true
		}
	}
	return false
}

// IsBool reports whether the domain is exactly {True, False}.
func (d OptionDomain) IsBool() bool {
	return len(d) == 2 && d.Contains("True") && d.Contains("False")
}

// Bool returns the truth value of a normalized option value.
func (v OptionValues) Bool(name string) bool {
	return v[name] == "True"
}

// Names returns the sorted option names.
func (v OptionValues) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal compares two value sets.
func (v OptionValues) Equal(other OptionValues) bool {
	if len(v) != len(other) {
		return false
	}
	for name, value := range v {
		if otherValue, ok := other[name]; !ok || otherValue != value {
			return false
		}
	}
	return true
}

func (v OptionValues) String() string {
	parts := make([]string, 0, len(v))
	for _, name := range v.Names() {
		parts = append(parts, name+"="+v[name])
	}
	return strings.Join(parts, " ")
}

// ParseAssignments splits name=value pairs as passed on the command line.
func ParseAssignments(items []string) (map[string]string, error) {
	result := make(map[string]string, len(items))
	for _, item := range items {
		pos := strings.Index(item, "=")
		if pos < 1 {
			return nil, eris.Errorf("expected name=value but got %q", item)
		}
		result[strings.TrimSpace(item[:pos])] = strings.TrimSpace(item[pos+1:])
	}
	return result, nil
}
