package pkg

import (
	"github.com/mitchellh/colorstring"

	"github.com/adnn/glfwsandbox/build-tools/pkg/scm"
)

// GetProjectRoot returns the top-level directory of the git checkout containing start. Outside of a checkout,
// start itself is the project root.
func GetProjectRoot(start string) string {
	root, err := scm.ProjectRoot(start)
	if err != nil {
		return start
	}
	return root
}

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintError(msg string) {
	colorstring.Printf("[red][bold]  ->[reset] %s\n", msg)
}
