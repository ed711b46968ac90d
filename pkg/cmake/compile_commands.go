package cmake

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/rotisserie/eris"
)

// CompileCommandsFile is the compilation database CMake writes into the build directory.
const CompileCommandsFile = "compile_commands.json"

// CompileCommand is one entry of a compilation database. Only the fields used to identify an entry are decoded,
// everything else is kept as is.
type CompileCommand map[string]interface{}

func (c CompileCommand) key() string {
	dir, _ := c["directory"].(string)
	file, _ := c["file"].(string)
	return dir + "\x00" + file
}

// MergeCompileCommands combines several compilation databases into output. Entries for the same file in the same
// directory are replaced by later inputs. Missing inputs are skipped if ignoreMissing is set.
func MergeCompileCommands(output string, inputs []string, ignoreMissing bool) (int, error) {
	merged := make([]CompileCommand, 0)
	index := map[string]int{}

	for _, fpath := range inputs {
		data, err := ioutil.ReadFile(fpath)
		if err != nil {
			if ignoreMissing && os.IsNotExist(err) {
				continue
			}
			return 0, eris.Wrapf(err, "failed to read %s", fpath)
		}

		var chunk []CompileCommand
		err = json.Unmarshal(data, &chunk)
		if err != nil {
			return 0, eris.Wrapf(err, "failed to decode %s", fpath)
		}

		for _, entry := range chunk {
			key := entry.key()
			if pos, ok := index[key]; ok {
				merged[pos] = entry
				continue
			}

			index[key] = len(merged)
			merged = append(merged, entry)
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "failed to encode output")
	}

	err = ioutil.WriteFile(output, data, 0660)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to write to %s", output)
	}

	return len(merged), nil
}
