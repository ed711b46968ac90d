// Package archive packs a package folder into a compressed tarball and unpacks it again.
package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// Format identifies the compression applied to the tarball.
type Format int

const (
	FormatXZ Format = iota
	FormatBrotli
)

// FormatForName picks the format from the archive's file extension.
func FormatForName(name string) (Format, error) {
	switch {
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatXZ, nil
	case strings.HasSuffix(name, ".tar.br"):
		return FormatBrotli, nil
	default:
		return 0, eris.Errorf("archive format of %s not supported, use .tar.xz or .tar.br", name)
	}
}

// NewProgressBar returns a byte progress bar; it stays hidden on CI.
func NewProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

type compressor interface {
	io.Writer
	Close() error
}

func newCompressor(format Format, w io.Writer) (compressor, error) {
	switch format {
	case FormatXZ:
		return xz.NewWriter(w)
	case FormatBrotli:
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	default:
		return nil, eris.Errorf("unknown format %d", format)
	}
}

func newDecompressor(format Format, r io.Reader) (io.Reader, error) {
	switch format {
	case FormatXZ:
		return xz.NewReader(r)
	case FormatBrotli:
		return brotli.NewReader(r), nil
	default:
		return nil, eris.Errorf("unknown format %d", format)
	}
}

// within reports whether path is root itself or lies below it. Both paths have to be absolute.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkParents fails if any existing directory between root and dest is a symlink
func checkParents(root, dest string) error {
	rel, err := filepath.Rel(root, filepath.Dir(dest))
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", dest)
	}
	if rel == "." {
		return nil
	}

	path := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		path = filepath.Join(path, part)
		info, err := os.Lstat(path)
		if err != nil {
			if os.IsNotExist(err) {
				// everything below is created by us
				return nil
			}
			return eris.Wrapf(err, "failed to check %s", path)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return eris.Errorf("refusing to extract %s through the symlink %s", dest, path)
		}
	}
	return nil
}

// isSymlink reports whether path exists and is a symlink
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// dirSize sums up the size of all regular files below dir
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Pack writes the contents of srcDir into the archive dest. Paths inside the archive are relative to srcDir.
// bar may be nil. dest must not be inside srcDir and is removed again if packing fails.
func Pack(dest, srcDir string, bar *progressbar.ProgressBar) (err error) {
	format, err := FormatForName(dest)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcDir)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", srcDir)
	}
	if !info.IsDir() {
		return eris.Errorf("%s is not a directory", srcDir)
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", dest)
	}
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", srcDir)
	}
	if within(absSrc, absDest) {
		return eris.Errorf("can't write the archive %s into %s since that directory is being packed", dest, srcDir)
	}

	if bar == nil {
		size, err := dirSize(srcDir)
		if err != nil {
			return eris.Wrapf(err, "failed to scan %s", srcDir)
		}
		bar = NewProgressBar(size, "Packing "+filepath.Base(dest))
	}

	hdl, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}
	defer func() {
		hdl.Close()
		if err != nil {
			os.Remove(dest)
		}
	}()

	cw, err := newCompressor(format, hdl)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	buffer := make([]byte, 4096)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return eris.Wrapf(err, "failed to read symlink %s", path)
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return eris.Wrapf(err, "failed to build header for %s", path)
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}

		err = tw.WriteHeader(header)
		if err != nil {
			return eris.Wrapf(err, "failed to write header for %s", path)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()

		_, err = io.CopyBuffer(io.MultiWriter(tw, bar), f, buffer)
		if err != nil {
			return eris.Wrapf(err, "failed to pack %s", path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = tw.Close()
	if err != nil {
		return eris.Wrap(err, "failed to finish tarball")
	}

	err = cw.Close()
	if err != nil {
		return eris.Wrap(err, "failed to finish compression")
	}

	bar.Finish()
	err = hdl.Close()
	if err != nil {
		return eris.Wrapf(err, "failed to close %s", dest)
	}
	return nil
}

// Unpack extracts the archive src into destDir. Entries that would escape destDir are rejected, either
// through their name, a symlink target or a symlink that already exists in destDir.
func Unpack(src, destDir string) error {
	format, err := FormatForName(src)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(destDir)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", destDir)
	}

	f, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer f.Close()

	r, err := newDecompressor(format, f)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", src)
	}

	archive := tar.NewReader(r)
	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "failed to read archive entry")
		}

		dest := filepath.Join(root, filepath.FromSlash(item.Name))
		if !within(root, dest) {
			return eris.Errorf("archive entry %s points outside of %s", item.Name, destDir)
		}

		if dest != root {
			err = checkParents(root, dest)
			if err != nil {
				return err
			}

			if isSymlink(dest) {
				return eris.Errorf("refusing to replace the existing symlink %s", dest)
			}
		}

		fi := item.FileInfo()
		switch {
		case fi.IsDir():
			err = os.MkdirAll(dest, 0770)
			if err != nil {
				return eris.Wrapf(err, "failed to create %s", dest)
			}
		case item.Typeflag == tar.TypeSymlink:
			target := filepath.FromSlash(item.Linkname)
			if filepath.IsAbs(target) || !within(root, filepath.Join(filepath.Dir(dest), target)) {
				return eris.Errorf("symlink %s points outside of %s (%s)", item.Name, destDir, item.Linkname)
			}

			err = os.MkdirAll(filepath.Dir(dest), 0770)
			if err != nil {
				return eris.Wrapf(err, "failed to create %s", filepath.Dir(dest))
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
		default:
			err = extractFile(archive, dest, fi.Mode())
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func extractFile(r io.Reader, dest string, mode os.FileMode) error {
	err := os.MkdirAll(filepath.Dir(dest), 0770)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", filepath.Dir(dest))
	}

	hdl, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to open %s for writing", dest)
	}
	defer hdl.Close()

	_, err = io.Copy(hdl, r)
	if err != nil {
		return eris.Wrapf(err, "failed to write extracted file %s", dest)
	}

	return hdl.Close()
}
