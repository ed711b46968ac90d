package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg"
	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
	"github.com/adnn/glfwsandbox/build-tools/pkg/scm"
)

func referenceList(refs []recipe.Reference) string {
	parts := make([]string, len(refs))
	for idx, ref := range refs {
		parts[idx] = ref.String()
	}
	return strings.Join(parts, ", ")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the recipe with its resolved options and source locator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		asYAML, err := cmd.Flags().GetBool("yaml")
		if err != nil {
			return err
		}

		d := s.descriptor
		if asYAML {
			data, err := recipe.ToYAML(d)
			if err != nil {
				return err
			}

			_, err = os.Stdout.Write(data)
			return err
		}

		source := s.recipePath
		if source == "" {
			source = "built-in"
		}

		pkg.PrintTask(fmt.Sprintf("%s (%s)", d.Name, source))
		pkg.PrintSubtask("license: " + d.License)
		pkg.PrintSubtask("url: " + d.URL)
		pkg.PrintSubtask("description: " + d.Description)
		pkg.PrintSubtask("settings: " + strings.Join(d.Settings, ", "))
		pkg.PrintSubtask("requires: " + referenceList(d.Requires))
		pkg.PrintSubtask("build_requires: " + referenceList(d.BuildRequires))
		pkg.PrintSubtask("build_policy: " + d.BuildPolicy)
		pkg.PrintSubtask("generators: " + strings.Join(d.Generators, ", "))

		pkg.PrintTask("Options")
		for _, name := range d.OptionNames() {
			pkg.PrintSubtask(fmt.Sprintf("%s = %s (one of %s)", name, s.options[name], strings.Join(d.Options[name], ", ")))
		}

		settings := s.profile.RecipeSettings()
		pkg.PrintTask("Settings")
		pkg.PrintSubtask(fmt.Sprintf("os = %s, arch = %s", settings.OS, settings.Arch))
		pkg.PrintSubtask(fmt.Sprintf("compiler = %s %s", settings.Compiler, settings.CompilerVersion))
		pkg.PrintSubtask("cppstd = " + settings.EffectiveCppstd())
		pkg.PrintSubtask("build_type = " + settings.BuildType)
		if err := recipe.CheckMinCppstd(settings, recipe.MinCppstd); err != nil {
			pkg.PrintError(err.Error())
		}

		pkg.PrintTask("Source")
		locator, err := scm.Resolve(s.layout.SourceDir, d.SCM)
		if err != nil {
			pkg.PrintError(err.Error())
			locator = d.SCM
		}
		pkg.PrintSubtask(fmt.Sprintf("%s %s @ %s (submodules: %s)", locator.Type, locator.URL, locator.Revision, locator.Submodule))

		if checkout, err := scm.Inspect(s.layout.SourceDir); err == nil && checkout.Dirty {
			pkg.PrintError("the working tree has uncommitted changes")
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("yaml", false, "print the recipe as YAML instead")
	rootCmd.AddCommand(inspectCmd)
}
