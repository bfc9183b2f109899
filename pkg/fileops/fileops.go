package fileops

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// tempMarker tags in-flight conversion outputs so ingestion ignores them
// and the sweep can find orphans.
const tempMarker = ".morphtmp"

// CopyFile copies src to dst, creating or truncating dst. The copy is
// bytes only; ownership is the caller's concern.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCreate, "failed to create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to flush %s", dst)
	}
	return nil
}

// TempOutputPath returns the private output location for a conversion of
// source to ext. It lives next to the final path so the finishing rename
// stays within one filesystem.
func TempOutputPath(source, ext string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return base + tempMarker + "." + ext
}

// TempDirPath returns a private scratch directory name beside base.
func TempDirPath(base string) string {
	return base + tempMarker + ".d"
}

// IsTempPath reports whether path was produced by TempOutputPath or
// TempDirPath.
func IsTempPath(path string) bool {
	return strings.Contains(filepath.Base(path), tempMarker)
}

// ReplaceFile atomically moves tmp into place at final.
func ReplaceFile(tmp, final string) error {
	if err := os.Rename(tmp, final); err != nil {
		return errors.Wrapf(err, errors.ErrFinalizeRename,
			"failed to move %s into place at %s", tmp, final)
	}
	return nil
}

// SweepStaleTemps removes conversion temporaries under root older than
// maxAge. It is the backstop for workers that crashed mid-conversion;
// errors on individual entries are logged and skipped.
func SweepStaleTemps(root string, maxAge time.Duration) int {
	logger := logging.GetLogger("fileops.sweep")
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !IsTempPath(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := os.RemoveAll(path); err == nil {
				removed++
				logger.Info().Str("path", path).Msg("removed stale temp directory")
			}
			return filepath.SkipDir
		}
		if err := os.Remove(path); err == nil {
			removed++
			logger.Info().Str("path", path).Msg("removed stale temp file")
		}
		return nil
	})

	return removed
}
