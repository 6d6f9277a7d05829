package store

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// UnsafePathError reports an archive entry that fails the
// path-sanitization rules required by spec §4.7: no absolute paths, no
// ".." components, no null bytes, no symlink targets that escape the
// destination directory.
type UnsafePathError struct {
	Entry string
}

func (e *UnsafePathError) Error() string {
	return "unsafe archive entry path: " + e.Entry
}

// extractArchive streams archivePath (zip, tar, or tar.gz, detected by
// extension/magic) into destDir, which must already exist and be empty.
func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if isZip(archivePath) {
		return extractZip(archivePath, destDir)
	}

	var r io.Reader = f
	if isGzip(archivePath) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "opening gzip stream")
		}
		defer gz.Close()
		r = gz
	}
	return extractTar(r, destDir)
}

func isZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

func isGzip(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".gz")
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "opening zip")
	}
	defer zr.Close()

	for _, entry := range zr.File {
		dest, err := sanitizedJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		mode := entry.Mode()
		if mode&os.ModeSymlink != 0 {
			rc, err := entry.Open()
			if err != nil {
				return err
			}
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			if err := writeSanitizedSymlink(destDir, dest, string(target)); err != nil {
				return err
			}
			continue
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		rc, err := entry.Open()
		if err != nil {
			return err
		}
		if err := writeEntryFile(dest, rc, mode); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

func extractTar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading tar entry")
		}

		dest, err := sanitizedJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := writeEntryFile(dest, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSanitizedSymlink(destDir, dest, hdr.Linkname); err != nil {
				return err
			}
		default:
			// Skip device nodes, fifos, and other non-regular entries;
			// package archives never legitimately contain them.
		}
	}
}

// sanitizedJoin validates name against spec §4.7's path rules and
// returns its destination path under destDir.
func sanitizedJoin(destDir, name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", &UnsafePathError{Entry: name}
	}
	if filepath.IsAbs(name) {
		return "", &UnsafePathError{Entry: name}
	}
	clean := filepath.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", &UnsafePathError{Entry: name}
	}
	return filepath.Join(destDir, clean), nil
}

// writeSanitizedSymlink rejects a symlink target that would resolve
// outside destDir, per spec §4.7's security rule.
func writeSanitizedSymlink(destDir, dest, target string) error {
	if filepath.IsAbs(target) {
		return &UnsafePathError{Entry: target}
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(dest), target))
	rel, err := filepath.Rel(destDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return &UnsafePathError{Entry: target}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, dest)
}

func writeEntryFile(dest string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}
