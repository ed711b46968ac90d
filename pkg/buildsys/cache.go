package buildsys

import (
	"encoding/gob"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

// StateFileName is the name of the state file inside the build directory.
const StateFileName = "recipe.state"

// State records which stages completed for which configuration.
type State struct {
	Recipe    string
	RunID     string
	Options   recipe.OptionValues
	Settings  recipe.Settings
	Completed map[Stage]bool
	Updated   time.Time
}

// Matches reports whether the state was recorded for the same configuration.
func (s *State) Matches(name string, options recipe.OptionValues, settings recipe.Settings) bool {
	return s.Recipe == name && s.Options.Equal(options) && s.Settings == settings
}

// invalidateFrom forgets the given stage and every stage after it.
func (s *State) invalidateFrom(stage Stage) {
	for completed := range s.Completed {
		if completed >= stage {
			delete(s.Completed, completed)
		}
	}
}

// WriteState saves state to file, creating the parent directory if necessary. The file is replaced in one step
// so an interrupted write leaves the previous state behind.
func WriteState(file string, state *State) error {
	dir := filepath.Dir(file)
	err := os.MkdirAll(dir, 0770)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dir)
	}

	tmp, err := ioutil.TempFile(dir, filepath.Base(file)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "failed to create temporary file in %s", dir)
	}
	tmpName := tmp.Name()

	state.Updated = time.Now()
	err = gob.NewEncoder(tmp).Encode(state)
	if err == nil {
		err = tmp.Sync()
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "failed to write %s", tmpName)
	}

	err = os.Rename(tmpName, file)
	if err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "failed to replace %s", file)
	}

	return nil
}

// ReadState loads a state file. A missing file is not an error; nil is returned instead.
func ReadState(file string) (*State, error) {
	handle, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "failed to open %s", file)
	}
	defer handle.Close()

	var state State
	err = gob.NewDecoder(handle).Decode(&state)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to decode %s", file)
	}

	if state.Completed == nil {
		state.Completed = map[Stage]bool{}
	}
	return &state, nil
}
