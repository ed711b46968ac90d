package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnn/glfwsandbox/build-tools/pkg/buildsys"
	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

const testProfile = `
[settings]
compiler = "gcc"
compiler_version = "11"
build_type = "Debug"

[cmake]
program = "true"

[log]
level = "warn"
`

func resetFlags() {
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			slice.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func execute(t *testing.T, args ...string) error {
	resetFlags()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

// captureOutput sends log events and cobra's own error output into the returned buffer until the test ends
func captureOutput(t *testing.T) *bytes.Buffer {
	var out bytes.Buffer
	logOutput = &out
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		logOutput = os.Stderr
		rootCmd.SetErr(nil)
	})
	return &out
}

func sandboxProject(t *testing.T, profile string) (string, string, string) {
	dir := t.TempDir()

	data, err := recipe.ToYAML(recipe.Glfwsandbox())
	require.NoError(t, err)

	recipePath := filepath.Join(dir, "recipe.yml")
	require.NoError(t, ioutil.WriteFile(recipePath, data, 0660))

	profilePath := filepath.Join(dir, "profile.toml")
	require.NoError(t, ioutil.WriteFile(profilePath, []byte(profile), 0660))

	return dir, recipePath, profilePath
}

func TestFindRecipeSearchesUpwards(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "src", "apps")
	require.NoError(t, os.MkdirAll(nested, 0770))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "recipe.star"), []byte(`recipe(name = "x")`), 0660))

	path, err := findRecipe(nested, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recipe.star"), path)

	_, err = findRecipe(nested, filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestLoadDescriptorFallsBackToBuiltin(t *testing.T) {
	d, err := loadDescriptor(context.Background(), "", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "glfwsandbox", d.Name)

	_, err = loadDescriptor(context.Background(), "recipe.json", t.TempDir(), nil)
	assert.Error(t, err)
}

func TestCreateRunsAllStages(t *testing.T) {
	dir, recipePath, profilePath := sandboxProject(t, testProfile)

	require.NoError(t, execute(t, "create", "--recipe", recipePath, "--profile", profilePath, "-o", "build_tests=True"))

	content, err := ioutil.ReadFile(filepath.Join(dir, "build", recipe.UserConfigFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "set(BUILD_tests True)")

	state, err := buildsys.ReadState(filepath.Join(dir, "build", buildsys.StateFileName))
	require.NoError(t, err)
	require.NotNil(t, state)
	for _, stage := range buildsys.AllStages() {
		assert.True(t, state.Completed[stage], stage.String())
	}

	// the package step can be repeated on its own with the same options
	require.NoError(t, execute(t, "package", "--recipe", recipePath, "--profile", profilePath, "-o", "build_tests=True"))

	// but not after the options changed
	assert.Error(t, execute(t, "package", "--recipe", recipePath, "--profile", profilePath))
}

func TestConfigureRejectsOldStandard(t *testing.T) {
	_, recipePath, profilePath := sandboxProject(t, testProfile)

	err := execute(t, "configure", "--recipe", recipePath, "--profile", profilePath, "-s", "compiler.cppstd=98")
	var cfgErr *recipe.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "11", cfgErr.Required)
}

func TestRejectsUnknownOptionValue(t *testing.T) {
	_, recipePath, profilePath := sandboxProject(t, testProfile)

	err := execute(t, "configure", "--recipe", recipePath, "--profile", profilePath, "-o", "visibility=protected")
	var valErr *recipe.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "visibility", valErr.Option)
}

func TestPackAfterCreate(t *testing.T) {
	dir, recipePath, profilePath := sandboxProject(t, testProfile)

	out := filepath.Join(dir, "out.tar.br")
	assert.Error(t, execute(t, "pack", out, "--recipe", recipePath, "--profile", profilePath))

	require.NoError(t, execute(t, "create", "--recipe", recipePath, "--profile", profilePath))

	// the fake cmake doesn't install anything
	pkgDir := filepath.Join(dir, "package", "include")
	require.NoError(t, os.MkdirAll(pkgDir, 0770))
	require.NoError(t, ioutil.WriteFile(filepath.Join(pkgDir, "sandbox.h"), []byte("#pragma once\n"), 0660))

	require.NoError(t, execute(t, "pack", out, "--recipe", recipePath, "--profile", profilePath))

	dest := t.TempDir()
	require.NoError(t, execute(t, "unpack", out, dest))
	assert.FileExists(t, filepath.Join(dest, "include", "sandbox.h"))

	// packing into the package directory would put the archive into itself
	inside := filepath.Join(dir, "package", "include", "self.tar.xz")
	err := execute(t, "pack", inside, "--recipe", recipePath, "--profile", profilePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "being packed")
	assert.NoFileExists(t, inside)
}

func TestUnpackRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, execute(t, "unpack", filepath.Join(t.TempDir(), "package.zip"), t.TempDir()))
}

func TestFailureIsReportedOnce(t *testing.T) {
	_, recipePath, profilePath := sandboxProject(t, testProfile)
	out := captureOutput(t)

	resetFlags()
	rootCmd.SetArgs([]string{"configure", "--recipe", recipePath, "--profile", profilePath, "-s", "compiler.cppstd=98"})
	assert.Equal(t, 1, run(context.Background()))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "lower than the required 11"), text)
	assert.Equal(t, 1, strings.Count(text, "command failed"), text)
	assert.Contains(t, text, "Error: ")
}

func TestFailureBeforeSessionIsReportedOnce(t *testing.T) {
	out := captureOutput(t)

	resetFlags()
	rootCmd.SetArgs([]string{"configure", "--profile", filepath.Join(t.TempDir(), "missing.toml")})
	assert.Equal(t, 1, run(context.Background()))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "command failed"), text)
	assert.Contains(t, text, "failed to open profile")
}

func TestSuccessReturnsZero(t *testing.T) {
	_, recipePath, profilePath := sandboxProject(t, testProfile)
	out := captureOutput(t)

	resetFlags()
	rootCmd.SetArgs([]string{"configure", "--recipe", recipePath, "--profile", profilePath})
	assert.Equal(t, 0, run(context.Background()))
	assert.NotContains(t, out.String(), "command failed")
}

func TestConsoleWriter(t *testing.T) {
	var out bytes.Buffer
	w := NewConsoleWriter(&out)

	_, err := w.Write([]byte(`{"level":"info","task":"build","command":true,"message":"cmake --build build"}`))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "build: ")
	assert.Contains(t, out.String(), "cmake --build build")

	out.Reset()
	_, err = w.Write([]byte(`{"level":"error","message":"value [x] rejected"}`))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error: ")
	assert.Contains(t, out.String(), "x] rejected")

	_, err = w.Write([]byte(`not json`))
	assert.Error(t, err)
}
