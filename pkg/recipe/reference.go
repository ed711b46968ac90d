package recipe

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Reference is a pinned dependency of the form name/version.
type Reference struct {
	Name    string
	Version string
	semver  *semver.Version
}

// characters that only appear in version ranges
const rangeChars = "[]()*^~<>=|, "

// ParseReference parses a name/version pin. Floating versions and ranges are rejected.
func ParseReference(raw string) (Reference, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Reference{}, eris.Errorf("malformed reference %q, expected name/version", raw)
	}

	name, version := parts[0], parts[1]
	if strings.ContainsAny(version, rangeChars) || strings.ContainsAny(name, rangeChars) {
		return Reference{}, eris.Errorf("reference %q is not pinned to an exact version", raw)
	}

	parsed, err := semver.NewVersion(version)
	if err != nil {
		return Reference{}, eris.Wrapf(err, "reference %q has an invalid version", raw)
	}

	return Reference{Name: name, Version: version, semver: parsed}, nil
}

// MustParseReference is like ParseReference but panics on error. Only use it for literals.
func MustParseReference(raw string) Reference {
	ref, err := ParseReference(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

func (r Reference) String() string {
	return r.Name + "/" + r.Version
}

// Semver returns the parsed version or nil if the reference was built by hand.
func (r Reference) Semver() *semver.Version {
	return r.semver
}

// ParseReferences parses a list of pins and rejects duplicate names.
func ParseReferences(raw []string) ([]Reference, error) {
	result := make([]Reference, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		ref, err := ParseReference(item)
		if err != nil {
			return nil, err
		}

		if seen[ref.Name] {
			return nil, eris.Errorf("%s is required more than once", ref.Name)
		}
		seen[ref.Name] = true
		result = append(result, ref)
	}

	return result, nil
}
