package recipe

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	// UserConfigFile is written by generate() into the build directory.
	UserConfigFile = "conanuser_config.cmake"
	// PathsFile is produced by the dependency resolver next to UserConfigFile.
	PathsFile = "conan_paths.cmake"
)

// cmakeSlashes turns every backslash into a forward slash. CMake treats backslashes in strings as escapes.
func cmakeSlashes(value string) string {
	return strings.ReplaceAll(value, `\`, "/")
}

// RenderUserConfig returns the content of the user config file for the given options.
func RenderUserConfig(d *Descriptor, options OptionValues) string {
	var buffer strings.Builder

	buffer.WriteString("message(STATUS \"Including user generated conan config.\")\n")
	// don't use filepath.Join here, on Windows it produces backslashes
	buffer.WriteString(fmt.Sprintf("include(\"%s\")\n", "${CMAKE_CURRENT_LIST_DIR}/"+PathsFile))

	for _, name := range options.Names() {
		variable, ok := d.CMakeVariables[name]
		if !ok {
			continue
		}

		buffer.WriteString(fmt.Sprintf("set(%s %s)\n", variable, cmakeSlashes(options[name])))
	}

	return buffer.String()
}

// WriteUserConfig writes the user config file into dir. The file is either written completely or not at all.
func WriteUserConfig(dir string, d *Descriptor, options OptionValues) (string, error) {
	content := RenderUserConfig(d, options)
	dest := filepath.Join(dir, UserConfigFile)

	tmp, err := ioutil.TempFile(dir, UserConfigFile+".*.tmp")
	if err != nil {
		return "", eris.Wrapf(err, "failed to create temporary file in %s", dir)
	}
	tmpName := tmp.Name()

	_, err = tmp.WriteString(content)
	if err == nil {
		err = tmp.Chmod(0644)
	}
	if err == nil {
		err = tmp.Sync()
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmpName)
		return "", eris.Wrapf(err, "failed to write %s", tmpName)
	}

	err = os.Rename(tmpName, dest)
	if err != nil {
		os.Remove(tmpName)
		return "", eris.Wrapf(err, "failed to move %s to %s", tmpName, dest)
	}

	return dest, nil
}
