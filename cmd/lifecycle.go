package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg/buildsys"
)

func stageCommand(use, short, long string, stages ...buildsys.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			return s.run(stages...)
		},
	}
}

func init() {
	rootCmd.AddCommand(stageCommand("configure", "Check the settings against the recipe's requirements",
		`Fails if the configured C++ standard is older than C++11.`,
		buildsys.StageConfigure))

	rootCmd.AddCommand(stageCommand("generate", "Write the CMake user config into the build directory",
		`Creates conanuser_config.cmake which includes conan_paths.cmake and forwards the
recipe options that map to CMake variables. Requires a completed configure step.`,
		buildsys.StageGenerate))

	rootCmd.AddCommand(stageCommand("build", "Configure and build the project with CMake",
		`Requires completed configure and generate steps with the same options.`,
		buildsys.StageBuild))

	rootCmd.AddCommand(stageCommand("package", "Install the build results into the package directory",
		`Runs cmake --install. Refuses to run if the last build failed or used different options.`,
		buildsys.StagePackage))

	rootCmd.AddCommand(stageCommand("package-info", "Declare the package's consumer metadata",
		`The sandbox exports nothing to consumers so this only records the step as done.`,
		buildsys.StagePackageInfo))

	rootCmd.AddCommand(stageCommand("create", "Run every step from configure to package-info",
		`Equivalent to running configure, generate, build, package and package-info in order.
Stops at the first failing step.`,
		buildsys.AllStages()...))
}
