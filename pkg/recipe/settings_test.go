package recipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMinCppstd(t *testing.T) {
	cases := []struct {
		settings Settings
		ok       bool
	}{
		{Settings{Compiler: "gcc", CompilerVersion: "9", Cppstd: "11"}, true},
		{Settings{Compiler: "gcc", CompilerVersion: "9", Cppstd: "gnu17"}, true},
		{Settings{Compiler: "gcc", CompilerVersion: "9", Cppstd: "20"}, true},
		{Settings{Compiler: "gcc", CompilerVersion: "9", Cppstd: "98"}, false},
		{Settings{Compiler: "gcc", CompilerVersion: "9", Cppstd: "gnu98"}, false},
		{Settings{Compiler: "gcc", CompilerVersion: "9"}, true},
		{Settings{Compiler: "gcc", CompilerVersion: "5.4"}, false},
		{Settings{Compiler: "clang", CompilerVersion: "12"}, true},
		{Settings{Compiler: "apple-clang", CompilerVersion: "13.0"}, false},
		{Settings{Compiler: "msvc", CompilerVersion: "193"}, true},
		{Settings{Compiler: "tcc", CompilerVersion: "0.9"}, false},
		{Settings{}, false},
	}

	for _, c := range cases {
		err := CheckMinCppstd(c.settings, MinCppstd)
		if c.ok {
			assert.NoError(t, err, "%+v", c.settings)
		} else {
			var cerr *ConfigurationError
			assert.True(t, errors.As(err, &cerr), "%+v: %v", c.settings, err)
		}
	}
}

func TestCheckMinCppstdReportsActual(t *testing.T) {
	err := CheckMinCppstd(Settings{Cppstd: "98"}, "11")

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "98", cerr.Actual)
	assert.Equal(t, "11", cerr.Required)
	assert.Contains(t, cerr.Error(), "lower than the required 11")
}

func TestCheckMinCppstdInvalidRequirement(t *testing.T) {
	err := CheckMinCppstd(Settings{Cppstd: "17"}, "eleven")
	require.Error(t, err)

	var cerr *ConfigurationError
	assert.False(t, errors.As(err, &cerr))
}

func TestDefaultCppstd(t *testing.T) {
	assert.Equal(t, "gnu14", DefaultCppstd("gcc", "9.3"))
	assert.Equal(t, "gnu17", DefaultCppstd("gcc", "11"))
	assert.Equal(t, "gnu98", DefaultCppstd("gcc", "4.9"))
	assert.Equal(t, "", DefaultCppstd("gcc", "not-a-version"))
	assert.Equal(t, "", DefaultCppstd("icc", "19"))
}

func TestCheckMinCppstdUnknownRevision(t *testing.T) {
	err := CheckMinCppstd(Settings{Cppstd: "gnu++17"}, "11")

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, cerr.Unknown)
	assert.Equal(t, "gnu++17", cerr.Actual)
	assert.Contains(t, cerr.Error(), "not a known standard revision")
	assert.NotContains(t, cerr.Error(), "lower than")
}
