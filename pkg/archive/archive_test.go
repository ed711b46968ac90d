package archive

import (
	"archive/tar"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func samplePackage(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "include", "glfwsandbox"), 0770))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0770))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "include", "glfwsandbox", "sandbox.h"), []byte("#pragma once\n"), 0660))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "lib", "libglfwsandbox.a"), []byte("!<arch>\n"), 0660))
	return dir
}

func TestFormatForName(t *testing.T) {
	format, err := FormatForName("pkg.tar.xz")
	require.NoError(t, err)
	assert.Equal(t, FormatXZ, format)

	format, err = FormatForName("pkg.tar.br")
	require.NoError(t, err)
	assert.Equal(t, FormatBrotli, format)

	_, err = FormatForName("pkg.zip")
	assert.Error(t, err)
}

func TestPackAndUnpack(t *testing.T) {
	src := samplePackage(t)

	for _, name := range []string{"package.tar.xz", "package.tar.br"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), name)
			require.NoError(t, Pack(out, src, NewProgressBar(-1, "test")))

			dest := t.TempDir()
			require.NoError(t, Unpack(out, dest))

			content, err := ioutil.ReadFile(filepath.Join(dest, "include", "glfwsandbox", "sandbox.h"))
			require.NoError(t, err)
			assert.Equal(t, "#pragma once\n", string(content))

			content, err = ioutil.ReadFile(filepath.Join(dest, "lib", "libglfwsandbox.a"))
			require.NoError(t, err)
			assert.Equal(t, "!<arch>\n", string(content))
		})
	}
}

func TestPackRejectsFiles(t *testing.T) {
	src := samplePackage(t)
	err := Pack(filepath.Join(t.TempDir(), "out.tar.xz"), filepath.Join(src, "lib", "libglfwsandbox.a"), nil)
	assert.Error(t, err)
}

func TestPackRejectsDestInsideSource(t *testing.T) {
	src := samplePackage(t)
	out := filepath.Join(src, "lib", "self.tar.xz")

	err := Pack(out, src, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "being packed")
	assert.NoFileExists(t, out)
}

type entry struct {
	header  tar.Header
	content string
}

// writeTarXZ builds an archive by hand so it can contain entries Pack would never produce
func writeTarXZ(t *testing.T, entries ...entry) string {
	out := filepath.Join(t.TempDir(), "crafted.tar.xz")
	hdl, err := os.Create(out)
	require.NoError(t, err)
	defer hdl.Close()

	cw, err := xz.NewWriter(hdl)
	require.NoError(t, err)

	tw := tar.NewWriter(cw)
	for _, e := range entries {
		header := e.header
		if header.Typeflag == tar.TypeReg {
			header.Size = int64(len(e.content))
		}
		if header.Mode == 0 {
			header.Mode = 0660
		}
		require.NoError(t, tw.WriteHeader(&header))
		if e.content != "" {
			_, err = tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, cw.Close())
	require.NoError(t, hdl.Close())
	return out
}

func TestUnpackRejectsEscapingSymlinks(t *testing.T) {
	outside := t.TempDir()

	targets := map[string]string{
		"relative": "../" + filepath.Base(outside),
		"absolute": outside,
	}
	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			parent := t.TempDir()
			dest := filepath.Join(parent, "dest")
			require.NoError(t, os.Mkdir(dest, 0770))

			src := writeTarXZ(t,
				entry{header: tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: target}},
				entry{header: tar.Header{Name: "link/pwned", Typeflag: tar.TypeReg}, content: "gotcha"},
			)

			err := Unpack(src, dest)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "points outside")

			_, err = os.Lstat(filepath.Join(dest, "link"))
			assert.True(t, os.IsNotExist(err))
			assert.NoFileExists(t, filepath.Join(outside, "pwned"))
		})
	}
}

func TestUnpackRefusesExistingSymlinks(t *testing.T) {
	outside := t.TempDir()
	target := filepath.Join(outside, "target")
	require.NoError(t, ioutil.WriteFile(target, []byte("original"), 0660))

	dest := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dest, "lib")))
	require.NoError(t, os.Symlink(target, filepath.Join(dest, "config")))

	src := writeTarXZ(t, entry{header: tar.Header{Name: "lib/pwned", Typeflag: tar.TypeReg}, content: "gotcha"})
	err := Unpack(src, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "through the symlink")
	assert.NoFileExists(t, filepath.Join(outside, "pwned"))

	src = writeTarXZ(t, entry{header: tar.Header{Name: "config", Typeflag: tar.TypeReg}, content: "gotcha"})
	err = Unpack(src, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "existing symlink")

	content, err := ioutil.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
}

func TestUnpackKeepsInternalSymlinks(t *testing.T) {
	src := samplePackage(t)
	require.NoError(t, ioutil.WriteFile(filepath.Join(src, "lib", "libglfwsandbox.so.1"), []byte("\x7fELF"), 0660))
	require.NoError(t, os.Symlink("libglfwsandbox.so.1", filepath.Join(src, "lib", "libglfwsandbox.so")))

	out := filepath.Join(t.TempDir(), "package.tar.xz")
	require.NoError(t, Pack(out, src, NewProgressBar(-1, "test")))

	dest := t.TempDir()
	require.NoError(t, Unpack(out, dest))

	link, err := os.Readlink(filepath.Join(dest, "lib", "libglfwsandbox.so"))
	require.NoError(t, err)
	assert.Equal(t, "libglfwsandbox.so.1", link)
	assert.FileExists(t, filepath.Join(dest, "lib", "libglfwsandbox.so"))
}
