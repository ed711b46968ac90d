package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg"
	"github.com/adnn/glfwsandbox/build-tools/pkg/buildsys"
	"github.com/adnn/glfwsandbox/build-tools/pkg/cmake"
	"github.com/adnn/glfwsandbox/build-tools/pkg/config"
	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

// recipeFiles are searched in this order in every directory from the working directory upwards
var recipeFiles = []string{"recipe.star", "recipe.yml"}

// session bundles everything a command needs: the profile, the loaded recipe and its resolved options
type session struct {
	ctx     context.Context
	logger  *zerolog.Logger
	profile *config.Profile

	root       string
	recipePath string
	descriptor *recipe.Descriptor
	options    recipe.OptionValues
	layout     recipe.Layout
	dryRun     bool
}

// logOutput receives every log event, including the final error of a failed command
var logOutput io.Writer = os.Stderr

// sessionLogger is the logger of the last session so Execute can report errors the same way
var sessionLogger *zerolog.Logger

func newLogger(jsonOutput bool, level zerolog.Level) zerolog.Logger {
	var logger zerolog.Logger
	if jsonOutput {
		zerolog.ErrorMarshalFunc = func(err error) interface{} {
			return eris.ToJSON(err, os.Getenv("BUILDSYS_DEBUG") != "")
		}
		logger = zerolog.New(logOutput).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(NewConsoleWriter(logOutput))
	}

	return logger.Level(level)
}

// findRecipe returns the recipe passed with --recipe or searches upwards from dir. An empty result means the
// built-in descriptor should be used.
func findRecipe(dir, explicit string) (string, error) {
	if explicit != "" {
		_, err := os.Stat(explicit)
		if err != nil {
			return "", eris.Wrapf(err, "failed to open recipe %s", explicit)
		}
		return filepath.Abs(explicit)
	}

	path := dir
	for {
		for _, name := range recipeFiles {
			candidate := filepath.Join(path, name)
			_, err := os.Stat(candidate)
			if err == nil {
				return candidate, nil
			}
			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrapf(err, "failed to check %s", candidate)
			}
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", nil
		}
		path = parent
	}
}

func loadDescriptor(ctx context.Context, path, root string, overrides map[string]string) (*recipe.Descriptor, error) {
	switch {
	case path == "":
		return recipe.Glfwsandbox(), nil
	case strings.HasSuffix(path, ".star"):
		return buildsys.LoadScript(ctx, path, root, overrides)
	case strings.HasSuffix(path, ".yml"), strings.HasSuffix(path, ".yaml"):
		return recipe.LoadYAML(path)
	default:
		return nil, eris.Errorf("don't know how to load %s, expected a .star or .yml file", path)
	}
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	recipeFlag, err := flags.GetString("recipe")
	if err != nil {
		return nil, err
	}

	profileFlag, err := flags.GetString("profile")
	if err != nil {
		return nil, err
	}

	optionFlags, err := flags.GetStringArray("option")
	if err != nil {
		return nil, err
	}

	settingFlags, err := flags.GetStringArray("setting")
	if err != nil {
		return nil, err
	}

	dryRun, err := flags.GetBool("dry")
	if err != nil {
		return nil, err
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	profile, err := config.Load(profileFlag, profileFlag != "")
	if err != nil {
		return nil, err
	}

	settings, err := recipe.ParseAssignments(settingFlags)
	if err != nil {
		return nil, err
	}

	err = profile.Apply(settings)
	if err != nil {
		return nil, err
	}

	err = profile.Validate()
	if err != nil {
		return nil, eris.Wrap(err, "invalid profile")
	}

	logger := newLogger(jsonOutput || profile.Log.JSON, profile.LogLevel())
	sessionLogger = &logger
	ctx := buildsys.WithLogger(cmd.Context(), &logger)

	wd, err := os.Getwd()
	if err != nil {
		return nil, eris.Wrap(err, "failed to retrieve the current working directory")
	}

	recipePath, err := findRecipe(wd, recipeFlag)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(recipePath)
	if recipePath == "" {
		root = pkg.GetProjectRoot(wd)
	}

	overrides, err := recipe.ParseAssignments(optionFlags)
	if err != nil {
		return nil, err
	}

	descriptor, err := loadDescriptor(ctx, recipePath, root, overrides)
	if err != nil {
		return nil, err
	}

	options, err := descriptor.ResolveOptions(overrides)
	if err != nil {
		return nil, err
	}

	return &session{
		ctx:        ctx,
		logger:     &logger,
		profile:    profile,
		root:       root,
		recipePath: recipePath,
		descriptor: descriptor,
		options:    options,
		layout:     profile.RecipeLayout(root),
		dryRun:     dryRun,
	}, nil
}

func (s *session) tool() *cmake.CMake {
	return &cmake.CMake{
		Program:    s.profile.CMake.Program,
		Generator:  s.profile.CMake.Generator,
		BuildType:  s.profile.Settings.BuildType,
		Parallel:   s.profile.CMake.Parallel,
		SourceDir:  s.layout.SourceDir,
		BuildDir:   s.layout.BuildDir,
		PackageDir: s.layout.PackageDir,
		DryRun:     s.dryRun,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Logger:     s.logger,
	}
}

// run executes the given lifecycle stages of the session's recipe
func (s *session) run(stages ...buildsys.Stage) error {
	r, err := recipe.NewCMakeRecipe(s.descriptor, s.layout, s.tool())
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("recipe", s.descriptor.Name).
		Str("options", s.options.String()).
		Str("path", s.layout.BuildDir).
		Msgf("using build directory %s", s.layout.BuildDir)

	return buildsys.Run(s.ctx, r, buildsys.Plan{
		Recipe:    s.descriptor.Name,
		Stages:    stages,
		Settings:  s.profile.RecipeSettings(),
		Options:   s.options,
		StateFile: filepath.Join(s.layout.BuildDir, buildsys.StateFileName),
		DryRun:    s.dryRun,
	})
}
