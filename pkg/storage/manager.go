// Package storage writes downloaded images and metadata sidecars under the
// export base directory. Every write goes through a temp file and an atomic
// rename so an interrupted run never leaves a partial file at a final path.
package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/logger"
)

const maxNameLength = 200

// Manager owns the export tree rooted at BaseDir.
type Manager struct {
	baseDir string
	logger  logger.Logger
}

// NewManager creates the base directory if needed and returns a manager
// rooted there.
func NewManager(baseDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errs.Newf(errs.ErrorTypeFilesystem, "creating base directory %s: %v", baseDir, err)
	}
	return &Manager{baseDir: baseDir, logger: log}, nil
}

// BaseDir returns the export root.
func (m *Manager) BaseDir() string { return m.baseDir }

// AbsPath resolves a slash-separated relative path under the base directory.
func (m *Manager) AbsPath(rel string) string {
	return filepath.Join(m.baseDir, filepath.FromSlash(rel))
}

// SaveImage streams the body to rel, hashing as it copies. The temp file is
// renamed into place only after the checksum verifies; a mismatch removes the
// temp file and returns a retryable checksum error. When no checksum is
// expected, size stands in; with neither, the copy is accepted as-is.
func (m *Manager) SaveImage(rel string, body io.Reader, expectedMD5 string, expectedSize int64) (int64, string, error) {
	final := m.AbsPath(rel)
	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return 0, "", errs.Newf(errs.ErrorTypeFilesystem, "creating directory for %s: %v", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), ".smugvault-*.tmp")
	if err != nil {
		return 0, "", errs.Newf(errs.ErrorTypeFilesystem, "creating temp file for %s: %v", rel, err)
	}
	tmpPath := tmp.Name()

	hasher := md5.New()
	written, err := io.Copy(tmp, io.TeeReader(body, hasher))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, "", errs.Newf(errs.ErrorTypeNetwork, "writing %s: %v", rel, err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if expectedMD5 != "" {
		if !strings.EqualFold(sum, expectedMD5) {
			os.Remove(tmpPath)
			return 0, "", errs.Newf(errs.ErrorTypeChecksum,
				"%s: got %s, expected %s", rel, sum, expectedMD5)
		}
	} else if expectedSize > 0 && written != expectedSize {
		os.Remove(tmpPath)
		return 0, "", errs.Newf(errs.ErrorTypeChecksum,
			"%s: got %d bytes, expected %d", rel, written, expectedSize)
	}

	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return 0, "", errs.Newf(errs.ErrorTypeFilesystem, "renaming %s into place: %v", rel, err)
	}

	m.logger.WithFields(map[string]interface{}{
		"path":  rel,
		"bytes": written,
	}).Debug("image saved")
	return written, sum, nil
}

// WriteFile atomically writes arbitrary content to rel via temp file and
// rename. Used for sidecars and reports.
func (m *Manager) WriteFile(rel string, content []byte) error {
	final := m.AbsPath(rel)
	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return errs.Newf(errs.ErrorTypeFilesystem, "creating directory for %s: %v", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), ".smugvault-*.tmp")
	if err != nil {
		return errs.Newf(errs.ErrorTypeFilesystem, "creating temp file for %s: %v", rel, err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return errs.Newf(errs.ErrorTypeFilesystem, "writing %s: %v", rel, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return errs.Newf(errs.ErrorTypeFilesystem, "renaming %s into place: %v", rel, err)
	}
	return nil
}

// SanitizeName makes a remote folder, gallery, or file name safe as a single
// path component. Separators and characters Windows rejects become
// underscores, trailing dots and spaces are trimmed, and overlong names are
// truncated.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), ". ")
	if len(out) > maxNameLength {
		out = strings.TrimRight(out[:maxNameLength], ". ")
	}
	if out == "" {
		return "unnamed"
	}
	return out
}

// DisambiguateName appends a numeric suffix before the extension, so
// "photo.jpg" with n=2 becomes "photo_2.jpg".
func DisambiguateName(name string, n int) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
