package recipe

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Settings are the platform axes of one build invocation.
type Settings struct {
	OS              string
	Arch            string
	Compiler        string
	CompilerVersion string
	Cppstd          string
	BuildType       string
}

// cppstdRank maps a standard revision to a sortable year. Anything before 11 is the 98/03 era.
func cppstdRank(std string) (int, bool) {
	std = strings.TrimPrefix(strings.ToLower(std), "gnu")
	switch std {
	case "98", "03":
		return 1998, true
	case "0x":
		return 2011, true
	case "1y":
		return 2014, true
	case "1z":
		return 2017, true
	case "2a":
		return 2020, true
	case "2b":
		return 2023, true
	}

	num, err := strconv.Atoi(std)
	if err != nil || num < 0 || num > 99 {
		return 0, false
	}
	return 2000 + num, true
}

// DefaultCppstd returns the language standard a compiler uses when no -std flag is given, or "" if unknown.
func DefaultCppstd(compiler, version string) string {
	ver, err := semver.NewVersion(version)
	if err != nil {
		return ""
	}
	major := ver.Major()

	switch compiler {
	case "gcc":
		switch {
		case major >= 11:
			return "gnu17"
		case major >= 6:
			return "gnu14"
		case major >= 1:
			return "gnu98"
		}
	case "clang":
		switch {
		case major >= 16:
			return "gnu17"
		case major >= 6:
			return "gnu14"
		case major >= 1:
			return "gnu98"
		}
	case "apple-clang":
		return "gnu98"
	case "msvc":
		// msvc versions are the toolset numbers, i.e. 190 for VS 2015
		if major >= 190 {
			return "14"
		}
	case "Visual Studio":
		if major >= 14 {
			return "14"
		}
	}

	return ""
}

// EffectiveCppstd returns the explicit cppstd setting or the compiler default.
func (s Settings) EffectiveCppstd() string {
	if s.Cppstd != "" {
		return s.Cppstd
	}
	return DefaultCppstd(s.Compiler, s.CompilerVersion)
}

// CheckMinCppstd fails with a ConfigurationError if the active standard is older than required or can't be
// determined.
func CheckMinCppstd(s Settings, required string) error {
	requiredRank, ok := cppstdRank(required)
	if !ok {
		return eris.Errorf("invalid cppstd requirement %s", required)
	}

	current := s.EffectiveCppstd()
	if current == "" {
		return &ConfigurationError{Setting: "compiler.cppstd", Required: required}
	}

	currentRank, ok := cppstdRank(current)
	if !ok {
		return &ConfigurationError{Setting: "compiler.cppstd", Required: required, Actual: current, Unknown: true}
	}

	if currentRank < requiredRank {
		return &ConfigurationError{Setting: "compiler.cppstd", Required: required, Actual: current}
	}

	return nil
}
