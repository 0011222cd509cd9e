package binary

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// tempPrefix names the scratch directory created inside the destination.
const tempPrefix = ".tmp_extract-"

// Extractor handles archive extraction
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract unpacks a gzip-compressed tar payload into dest.
//
// The archive is unpacked into a scratch directory inside dest and then
// flattened: a single top-level directory is dissolved so its children land
// directly in dest, otherwise every top-level entry is moved as is. Entries
// already present in dest are replaced.
func (e *Extractor) Extract(data []byte, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("create dest dir: %w", err))
	}

	tmp := filepath.Join(dest, tempPrefix+uuid.NewString())
	if err := os.Mkdir(tmp, 0755); err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("create temp dir: %w", err))
	}

	if err := unpackTarGz(data, tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	if err := flatten(tmp, dest); err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", err)
	}

	if err := os.Remove(tmp); err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("remove temp dir: %w", err))
	}

	e.logger.Debug().Str("dest", dest).Msg("bottle extracted")
	return nil
}

// maxLinkDepth bounds how many symlinks are followed while resolving one
// link target.
const maxLinkDepth = 40

// unpackTarGz decompresses data fully, then writes every supported tar
// entry under dir. All writes go through an os.Root so no entry can reach
// outside dir, even through links written by earlier entries.
func unpackTarGz(data []byte, dir string) error {
	gzipReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("create gzip reader: %w", err))
	}
	raw, err := io.ReadAll(gzipReader)
	gzipReader.Close()
	if err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("decompress archive: %w", err))
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("open temp dir: %w", err))
	}
	defer root.Close()

	tarReader := tar.NewReader(bytes.NewReader(raw))
	cleanRoot := filepath.Clean(dir)
	var links []string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break // End of archive
		}
		if err != nil {
			return installerr.New(installerr.KindFilesystem, "extract", fmt.Errorf("read tar header: %w", err))
		}

		target := filepath.Join(cleanRoot, header.Name)
		if target == cleanRoot {
			continue
		}

		// Security check: prevent path traversal
		if !within(cleanRoot, target) {
			return installerr.Errorf(installerr.KindFilesystem, "extract", "illegal file path: %s", header.Name)
		}
		rel := target[len(cleanRoot)+1:]

		if err := writeEntry(tarReader, header, root, rel); err != nil {
			return installerr.New(installerr.KindFilesystem, "extract", err)
		}
		if header.Typeflag == tar.TypeSymlink {
			links = append(links, rel)
		}
	}

	// A later entry can replace a directory that an earlier link climbs
	// through, so every link is checked again against the final tree.
	for _, rel := range links {
		if err := checkLink(root, rel); err != nil {
			return installerr.New(installerr.KindFilesystem, "extract", err)
		}
	}

	return nil
}

func writeEntry(r io.Reader, header *tar.Header, root *os.Root, rel string) error {
	mode := os.FileMode(header.Mode).Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		if err := root.MkdirAll(rel, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", rel, err)
		}
		// Keep directories owner-writable so later entries can land in them.
		if err := root.Chmod(rel, mode|0700); err != nil {
			return fmt.Errorf("chmod directory %s: %w", rel, err)
		}

	case tar.TypeReg:
		if err := mkdirParent(root, rel); err != nil {
			return err
		}
		if err := removeInRoot(root, rel); err != nil {
			return err
		}

		outFile, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return fmt.Errorf("create file %s: %w", rel, err)
		}
		if _, err := io.Copy(outFile, r); err != nil {
			outFile.Close()
			return fmt.Errorf("write file %s: %w", rel, err)
		}
		// The umask may have narrowed the mode given to OpenFile.
		if err := outFile.Chmod(mode); err != nil {
			outFile.Close()
			return fmt.Errorf("chmod file %s: %w", rel, err)
		}
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", rel, err)
		}

	case tar.TypeSymlink:
		if err := mkdirParent(root, rel); err != nil {
			return err
		}
		parent, ok := resolveInRoot(root, nil, filepath.Dir(rel), 0)
		if !ok {
			return fmt.Errorf("illegal symlink target: %s -> %s", header.Name, header.Linkname)
		}
		if resolved, ok := resolveInRoot(root, parent, header.Linkname, 0); !ok || len(resolved) == 0 {
			return fmt.Errorf("illegal symlink target: %s -> %s", header.Name, header.Linkname)
		}
		if err := removeInRoot(root, rel); err != nil {
			return err
		}
		if err := root.Symlink(header.Linkname, rel); err != nil {
			return fmt.Errorf("create symlink %s: %w", rel, err)
		}

	case tar.TypeLink:
		source := filepath.Clean(header.Linkname)
		if filepath.IsAbs(source) || source == "." || source == ".." ||
			strings.HasPrefix(source, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("illegal hard link target: %s -> %s", header.Name, header.Linkname)
		}
		if err := mkdirParent(root, rel); err != nil {
			return err
		}
		if err := removeInRoot(root, rel); err != nil {
			return err
		}
		if err := root.Link(source, rel); err != nil {
			return fmt.Errorf("create hard link %s: %w", rel, err)
		}

	default:
		// Skip other types (char devices, block devices, etc.)
	}

	return nil
}

// checkLink verifies that the symlink at rel, if it is still one, resolves
// strictly inside root.
func checkLink(root *os.Root, rel string) error {
	info, err := root.Lstat(rel)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	linkname, err := root.Readlink(rel)
	if err != nil {
		return fmt.Errorf("read symlink %s: %w", rel, err)
	}
	parent, ok := resolveInRoot(root, nil, filepath.Dir(rel), 0)
	if ok {
		var resolved []string
		resolved, ok = resolveInRoot(root, parent, linkname, 0)
		ok = ok && len(resolved) > 0
	}
	if !ok {
		return fmt.Errorf("illegal symlink target: %s -> %s", rel, linkname)
	}
	return nil
}

// resolveInRoot walks path from base the way the kernel would, following
// the symlinks already present under root. It returns the resulting path
// as components relative to root, or false when the walk leaves root.
// Components that do not exist yet are taken literally.
func resolveInRoot(root *os.Root, base []string, path string, depth int) ([]string, bool) {
	if depth > maxLinkDepth || filepath.IsAbs(path) {
		return nil, false
	}

	cur := append([]string(nil), base...)
	for _, comp := range strings.Split(filepath.ToSlash(path), "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(cur) == 0 {
				return nil, false
			}
			cur = cur[:len(cur)-1]
			continue
		}

		next := append(append([]string(nil), cur...), comp)
		rel := filepath.Join(next...)
		info, err := root.Lstat(rel)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			cur = next
			continue
		}

		linkname, err := root.Readlink(rel)
		if err != nil {
			return nil, false
		}
		resolved, ok := resolveInRoot(root, cur, linkname, depth+1)
		if !ok {
			return nil, false
		}
		cur = resolved
	}
	return cur, true
}

// within reports whether path lies strictly inside root.
func within(root, path string) bool {
	return strings.HasPrefix(filepath.Clean(path), filepath.Clean(root)+string(os.PathSeparator))
}

func mkdirParent(root *os.Root, rel string) error {
	parent := filepath.Dir(rel)
	if parent == "." {
		return nil
	}
	if err := root.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", rel, err)
	}
	return nil
}

func removeInRoot(root *os.Root, rel string) error {
	if err := root.RemoveAll(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", rel, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	return nil
}

// flatten moves the contents of tmp into dest.
//
//	one child, a directory  -> its children are moved, the wrapper removed
//	one child, a file       -> the file is moved
//	zero or several         -> every child is moved
func flatten(tmp, dest string) error {
	entries, err := os.ReadDir(tmp)
	if err != nil {
		return fmt.Errorf("read temp dir: %w", err)
	}

	if len(entries) == 1 && entries[0].IsDir() {
		wrapper := filepath.Join(tmp, entries[0].Name())
		children, err := os.ReadDir(wrapper)
		if err != nil {
			return fmt.Errorf("read %s: %w", wrapper, err)
		}
		for _, child := range children {
			if err := moveEntry(filepath.Join(wrapper, child.Name()), filepath.Join(dest, child.Name())); err != nil {
				return err
			}
		}
		if err := os.Remove(wrapper); err != nil {
			return fmt.Errorf("remove wrapper %s: %w", wrapper, err)
		}
		return nil
	}

	for _, entry := range entries {
		if err := moveEntry(filepath.Join(tmp, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// moveEntry moves src to dst. It tries a rename, then removes whatever is at
// dst and renames again, then falls back to copying. The source is removed
// only after a successful copy.
func moveEntry(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := removeIfExists(dst); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return nil
}

// copyTree copies src to dst, preserving permissions and symlinks.
func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		link, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(link, dst)

	case info.IsDir():
		if err := os.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		return os.Chmod(dst, info.Mode().Perm()|0700)

	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode().Perm())

	default:
		return nil
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	// Set permissions to 0755 (rwxr-xr-x)
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
