package cmake

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

func newTestCMake(t *testing.T, program string) *CMake {
	root := t.TempDir()
	return &CMake{
		Program:    program,
		SourceDir:  root,
		BuildDir:   filepath.Join(root, "build"),
		PackageDir: filepath.Join(root, "package"),
		Stdout:     &bytes.Buffer{},
		Stderr:     &bytes.Buffer{},
	}
}

func TestConfigureArgs(t *testing.T) {
	c := &CMake{
		SourceDir:   "/src",
		BuildDir:    "/src/build",
		PackageDir:  "/pkg",
		Generator:   "Ninja",
		BuildType:   "Debug",
		Definitions: map[string]string{"GLFW_USE_WAYLAND": "ON"},
	}

	args := c.ConfigureArgs(recipe.OptionValues{"build_tests": "False", "shared": "True", "visibility": "hidden"})
	assert.Equal(t, []string{
		"cmake", "-S", "/src", "-B", "/src/build", "-G", "Ninja",
		"-DBUILD_SHARED_LIBS=ON",
		"-DCMAKE_BUILD_TYPE=Debug",
		"-DCMAKE_CXX_VISIBILITY_PRESET=hidden",
		"-DCMAKE_C_VISIBILITY_PRESET=hidden",
		"-DCMAKE_EXPORT_COMPILE_COMMANDS=ON",
		"-DCMAKE_INSTALL_PREFIX=/pkg",
		"-DCMAKE_PROJECT_INCLUDE=/src/build/conanuser_config.cmake",
		"-DCMAKE_VISIBILITY_INLINES_HIDDEN=ON",
		"-DGLFW_USE_WAYLAND=ON",
	}, args)
}

func TestBuildAndInstallArgs(t *testing.T) {
	c := &CMake{Program: "/opt/cmake/bin/cmake", BuildDir: "build", PackageDir: "package", Parallel: 4}

	assert.Equal(t, []string{"/opt/cmake/bin/cmake", "--build", "build", "--config", "Release", "--parallel", "4"}, c.BuildArgs())
	assert.Equal(t, []string{"/opt/cmake/bin/cmake", "--install", "build", "--config", "Release", "--prefix", "package"}, c.InstallArgs())
}

func TestRunSuccess(t *testing.T) {
	// "true" is a shell builtin, so no cmake binary is needed
	c := newTestCMake(t, "true")
	ctx := context.Background()

	require.NoError(t, c.Configure(ctx, recipe.OptionValues{}))
	require.NoError(t, c.Build(ctx))
	require.NoError(t, c.Install(ctx))
}

func TestRunReportsExitStatus(t *testing.T) {
	c := newTestCMake(t, "false")

	err := c.Build(context.Background())
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "build", exitErr.Step)
	assert.Equal(t, uint8(1), exitErr.Status)
}

func TestDryRunOnlyLogs(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := zerolog.New(&logBuffer)

	c := newTestCMake(t, "false")
	c.DryRun = true
	c.Logger = &logger

	require.NoError(t, c.Install(context.Background()))
	assert.Contains(t, logBuffer.String(), `"step":"install"`)
	assert.Contains(t, logBuffer.String(), "--install")
}
