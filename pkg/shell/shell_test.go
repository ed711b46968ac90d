package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQuotesArguments(t *testing.T) {
	assert.Equal(t, "cmake --build build", Render(Call("cmake", "--build", "build")))
	assert.Equal(t, "cmake -S 'my project'", Render(Call("cmake", "-S", "my project")))
	assert.Equal(t, `echo 'C:\build'`, Render(Call("echo", `C:\build`)))
	assert.Equal(t, "echo ''", Render(Call("echo", "")))
}

func runScript(t *testing.T, dir, script string) (string, error) {
	var stdout bytes.Buffer
	runner, err := NewRunner(Options{Dir: dir, Stdout: &stdout, Stderr: &stdout, Env: map[string]string{"GREETING": "hi"}})
	require.NoError(t, err)

	stmts, err := Parse("test", script)
	require.NoError(t, err)

	for _, stmt := range stmts {
		err = runner.Run(context.Background(), stmt)
		if err != nil {
			break
		}
	}
	return stdout.String(), err
}

func TestRunnerPassesArgumentsVerbatim(t *testing.T) {
	out, err := runScript(t, t.TempDir(), Render(Call("echo", "a b", `c\d`, "it's", "$GREETING")))
	require.NoError(t, err)
	assert.Equal(t, "a b c\\d it's $GREETING\n", out)
}

func TestRunnerEnvironment(t *testing.T) {
	out, err := runScript(t, t.TempDir(), `echo "$GREETING"`)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
}

func TestExitStatus(t *testing.T) {
	_, err := runScript(t, t.TempDir(), "exit 3")
	status, ok := ExitStatus(err)
	require.True(t, ok)
	assert.Equal(t, uint8(3), status)

	status, ok = ExitStatus(nil)
	assert.True(t, ok)
	assert.Equal(t, uint8(0), status)
}

func TestPosixHelpersInScripts(t *testing.T) {
	dir := t.TempDir()

	_, err := runScript(t, dir, "mkdir -p out/nested; echo data > out/nested/file.txt; mv out/nested/file.txt out")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "file.txt"))

	_, err = runScript(t, dir, "rm out")
	assert.Error(t, err, "removing a directory requires -r")

	_, err = runScript(t, dir, "rm -rf out missing")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveMultipleRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0660))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), nil, 0660))

	assert.Error(t, Move(dir, []string{"a", "b"}, "c"))

	require.NoError(t, MakeDir(dir, []string{"c"}, false))
	require.NoError(t, Move(dir, []string{"a", "b"}, "c"))
	assert.FileExists(t, filepath.Join(dir, "c", "a"))
	assert.FileExists(t, filepath.Join(dir, "c", "b"))

	require.NoError(t, Move(dir, []string{"c/a"}, "renamed"))
	assert.FileExists(t, filepath.Join(dir, "renamed"))
}

func TestRemoveForceIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, Remove(dir, []string{"nothing"}, false, false))
	assert.NoError(t, Remove(dir, []string{"nothing", "*.tmp"}, false, true))
}
