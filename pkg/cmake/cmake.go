// Package cmake runs the CMake steps of a recipe through the shell interpreter.
package cmake

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
	"github.com/adnn/glfwsandbox/build-tools/pkg/shell"
)

// ExitError is returned when cmake exits with a non-zero status.
type ExitError struct {
	Step   string
	Status uint8
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("cmake %s exited with status %d", e.Step, e.Status)
}

// CMake implements recipe.BuildTool.
type CMake struct {
	Program    string
	Generator  string
	BuildType  string
	Parallel   int
	SourceDir  string
	BuildDir   string
	PackageDir string

	// Definitions are passed as -D flags in addition to the ones derived from the options.
	Definitions map[string]string
	Env         map[string]string

	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
	Logger *zerolog.Logger
}

var _ recipe.BuildTool = (*CMake)(nil)

func (c *CMake) program() string {
	if c.Program == "" {
		return "cmake"
	}
	return c.Program
}

func (c *CMake) buildType() string {
	if c.BuildType == "" {
		return "Release"
	}
	return c.BuildType
}

// cmakePath converts a path for use inside a -D definition. CMake interprets backslashes as escapes.
func cmakePath(path string) string {
	return filepath.ToSlash(path)
}

// ConfigureArgs returns the command line of the configure step.
func (c *CMake) ConfigureArgs(options recipe.OptionValues) []string {
	defs := map[string]string{
		"CMAKE_BUILD_TYPE":      c.buildType(),
		"CMAKE_INSTALL_PREFIX":  cmakePath(c.PackageDir),
		"CMAKE_PROJECT_INCLUDE": cmakePath(filepath.Join(c.BuildDir, recipe.UserConfigFile)),
		// picked up by MergeCompileCommands
		"CMAKE_EXPORT_COMPILE_COMMANDS": "ON",
	}

	if value, ok := options["shared"]; ok {
		defs["BUILD_SHARED_LIBS"] = boolDefinition(value)
	}

	if value, ok := options["visibility"]; ok {
		defs["CMAKE_CXX_VISIBILITY_PRESET"] = value
		defs["CMAKE_C_VISIBILITY_PRESET"] = value
		defs["CMAKE_VISIBILITY_INLINES_HIDDEN"] = boolDefinition(strconv.FormatBool(value == "hidden"))
	}

	for name, value := range c.Definitions {
		defs[name] = value
	}

	args := []string{c.program(), "-S", c.SourceDir, "-B", c.BuildDir}
	if c.Generator != "" {
		args = append(args, "-G", c.Generator)
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		args = append(args, "-D"+name+"="+defs[name])
	}

	return args
}

// BuildArgs returns the command line of the build step.
func (c *CMake) BuildArgs() []string {
	args := []string{c.program(), "--build", c.BuildDir, "--config", c.buildType()}
	if c.Parallel > 0 {
		args = append(args, "--parallel", strconv.Itoa(c.Parallel))
	}
	return args
}

// InstallArgs returns the command line of the install step.
func (c *CMake) InstallArgs() []string {
	return []string{c.program(), "--install", c.BuildDir, "--config", c.buildType(), "--prefix", c.PackageDir}
}

func boolDefinition(value string) string {
	if recipe.NormalizeValue(value) == "True" {
		return "ON"
	}
	return "OFF"
}

func (c *CMake) Configure(ctx context.Context, options recipe.OptionValues) error {
	return c.run(ctx, "configure", c.ConfigureArgs(options))
}

func (c *CMake) Build(ctx context.Context) error {
	return c.run(ctx, "build", c.BuildArgs())
}

func (c *CMake) Install(ctx context.Context) error {
	return c.run(ctx, "install", c.InstallArgs())
}

func (c *CMake) run(ctx context.Context, step string, args []string) error {
	cmd := shell.Call(args...)
	if c.Logger != nil {
		c.Logger.Info().
			Str("step", step).
			Bool("command", true).
			Msg(shell.Render(cmd))
	}

	if c.DryRun {
		return nil
	}

	runner, err := shell.NewRunner(shell.Options{
		Dir:    c.SourceDir,
		Env:    c.Env,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
	})
	if err != nil {
		return err
	}

	err = runner.Run(ctx, cmd)
	if err != nil {
		if status, ok := shell.ExitStatus(err); ok {
			return &ExitError{Step: step, Status: status}
		}
		return eris.Wrapf(err, "failed to run cmake %s", step)
	}

	return ctx.Err()
}
