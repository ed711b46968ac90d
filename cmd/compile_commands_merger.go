package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg"
	"github.com/adnn/glfwsandbox/build-tools/pkg/cmake"
)

var mergeCompileCommandsCmd = &cobra.Command{
	Use:   "compile-commands [input files...]",
	Short: "Merges compile_commands.json files into the project root",
	Long: `Collects the compilation database of the build directory and any additional
files passed, and writes the result to compile_commands.json next to the recipe
so editors and clangd find it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		inputs := append([]string{filepath.Join(s.layout.BuildDir, cmake.CompileCommandsFile)}, args...)
		output := filepath.Join(s.root, cmake.CompileCommandsFile)

		count, err := cmake.MergeCompileCommands(output, inputs, len(args) > 0)
		if err != nil {
			return err
		}

		pkg.PrintTask(fmt.Sprintf("Wrote %d entries to %s", count, output))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCompileCommandsCmd)
}
