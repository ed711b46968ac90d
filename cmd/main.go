package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for the GLFW sandbox",
	Long: `This command drives the glfwsandbox recipe through its lifecycle: configure,
generate, build, package and package-info. The build itself is delegated to CMake.

The recipe is read from the first recipe.star or recipe.yml found in the working
directory or its parents. Without one, the built-in glfwsandbox recipe is used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("recipe", "", "recipe file (.star or .yml) to use instead of searching for one")
	flags.StringArrayP("option", "o", nil, "set a recipe option (name=value)")
	flags.StringArrayP("setting", "s", nil, "override a profile setting (i.e. build_type=Debug or compiler.cppstd=17)")
	flags.String("profile", "", "profile to load (default \"profile.toml\" in the working directory)")
	flags.BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	flags.Bool("json", false, "output JSON log events instead of pretty console messages")
}

// run executes the command line and logs a failure. It returns the process exit code.
func run(ctx context.Context) int {
	sessionLogger = nil
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	logger := sessionLogger
	if logger == nil {
		// the command failed before it could load the profile
		fallback := newLogger(false, zerolog.InfoLevel)
		logger = &fallback
	}

	logger.Error().Err(err).Msg("command failed")
	return 1
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx)
	cancel()

	os.Exit(code)
}
