package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg"
	"github.com/adnn/glfwsandbox/build-tools/pkg/archive"
	"github.com/adnn/glfwsandbox/build-tools/pkg/buildsys"
)

var packCmd = &cobra.Command{
	Use:   "pack [archive_name]",
	Short: "Packs the package directory into a .tar.xz or .tar.br archive",
	Long: `Pass the name of the archive that should be generated. The extension selects the
compression. Defaults to <recipe>-<build_type>.tar.xz in the build directory.
The package step has to be complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		state, err := buildsys.ReadState(filepath.Join(s.layout.BuildDir, buildsys.StateFileName))
		if err != nil {
			return err
		}

		if state == nil || !state.Matches(s.descriptor.Name, s.options, s.profile.RecipeSettings()) ||
			!state.Completed[buildsys.StagePackage] {
			return eris.New("package has to complete before the package directory can be packed")
		}

		dest := filepath.Join(s.layout.BuildDir, fmt.Sprintf("%s-%s.tar.xz", s.descriptor.Name, s.profile.Settings.BuildType))
		if len(args) > 0 {
			dest = args[0]
		}

		if _, err := archive.FormatForName(dest); err != nil {
			return err
		}

		pkg.PrintTask(fmt.Sprintf("Packing %s", dest))
		if s.dryRun {
			pkg.PrintSubtask("skipped (dry run)")
			return nil
		}

		err = archive.Pack(dest, s.layout.PackageDir, nil)
		if err != nil {
			return err
		}

		pkg.PrintSubtask("Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
}
