package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adnn/glfwsandbox/build-tools/pkg"
	"github.com/adnn/glfwsandbox/build-tools/pkg/archive"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> <dest>",
	Short: "Extracts a packed .tar.xz or .tar.br archive",
	Long: `Unpacks an archive created by pack into the destination directory. Entries and
symlinks which would end up outside of the destination are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		pkg.PrintTask(fmt.Sprintf("Unpacking %s", args[0]))
		if dryRun {
			pkg.PrintSubtask("skipped (dry run)")
			return nil
		}

		err = archive.Unpack(args[0], args[1])
		if err != nil {
			return err
		}

		pkg.PrintSubtask("Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unpackCmd)
}
