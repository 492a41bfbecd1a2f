// Package state maintains the local file index the planner reconciles the
// remote inventory against. The index is rebuilt from the output tree on every
// run; files on disk are the only resume authority.
package state

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/logger"
)

// SidecarSuffix is the extension appended to an image path for its
// companion metadata file.
const SidecarSuffix = ".yaml"

type fileEntry struct {
	size   int64
	md5    string
	hashed bool
}

// Index is a snapshot of the export tree. Checksums are computed lazily on
// first comparison and cached for the rest of the run, so untouched files
// cost one stat and touched files cost one read.
type Index struct {
	root string

	mu    sync.Mutex
	files map[string]*fileEntry

	logger logger.Logger
}

// NewIndex creates an index rooted at the export base directory.
func NewIndex(root string, log logger.Logger) *Index {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Index{
		root:   root,
		files:  make(map[string]*fileEntry),
		logger: log,
	}
}

// Root returns the base directory the index was built from.
func (ix *Index) Root() string { return ix.root }

// Scan walks the output tree and records every regular file. A missing root
// is an empty index, not an error; the first run starts from nothing.
func (ix *Index) Scan() error {
	ix.mu.Lock()
	ix.files = make(map[string]*fileEntry)
	ix.mu.Unlock()

	count := 0
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == ix.root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return err
		}
		ix.mu.Lock()
		ix.files[filepath.ToSlash(rel)] = &fileEntry{size: info.Size()}
		ix.mu.Unlock()
		count++
		return nil
	})
	if err != nil {
		return errs.Newf(errs.ErrorTypeFilesystem, "scanning %s: %v", ix.root, err)
	}

	ix.logger.WithFields(map[string]interface{}{
		"root":  ix.root,
		"files": count,
	}).Debug("local index built")
	return nil
}

// Has reports whether a file exists at the relative path, regardless of its
// content.
func (ix *Index) Has(rel string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.files[rel]
	return ok
}

// Checksum returns the hex MD5 of the file at rel, computing and caching it
// on first use.
func (ix *Index) Checksum(rel string) (string, error) {
	ix.mu.Lock()
	entry, ok := ix.files[rel]
	if !ok {
		ix.mu.Unlock()
		return "", errs.Newf(errs.ErrorTypeNotFound, "%s not in index", rel)
	}
	if entry.hashed {
		sum := entry.md5
		ix.mu.Unlock()
		return sum, nil
	}
	ix.mu.Unlock()

	sum, err := hashFile(filepath.Join(ix.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", errs.Newf(errs.ErrorTypeFilesystem, "hashing %s: %v", rel, err)
	}

	ix.mu.Lock()
	entry.md5 = sum
	entry.hashed = true
	ix.mu.Unlock()
	return sum, nil
}

// Matches reports whether the local file at rel already satisfies the remote
// descriptor. A file with the wrong checksum counts as absent so the planner
// schedules a re-download over the corrupt copy. When the remote reports no
// checksum, size stands in; when it reports neither, presence is enough.
func (ix *Index) Matches(rel, expectedMD5 string, expectedSize int64) (bool, error) {
	ix.mu.Lock()
	entry, ok := ix.files[rel]
	ix.mu.Unlock()
	if !ok {
		return false, nil
	}

	if expectedMD5 != "" {
		sum, err := ix.Checksum(rel)
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(sum, expectedMD5) {
			ix.logger.WithFields(map[string]interface{}{
				"path":     rel,
				"local":    sum,
				"expected": expectedMD5,
			}).Warn("local file fails checksum, scheduling re-download")
			return false, nil
		}
		return true, nil
	}
	if expectedSize > 0 {
		return entry.size == expectedSize, nil
	}
	return true, nil
}

// ContentMatches reports whether the file at rel holds exactly the given
// bytes. Used for sidecar idempotence so unchanged metadata is not rewritten.
func (ix *Index) ContentMatches(rel string, content []byte) (bool, error) {
	ix.mu.Lock()
	entry, ok := ix.files[rel]
	ix.mu.Unlock()
	if !ok {
		return false, nil
	}
	if entry.size != int64(len(content)) {
		return false, nil
	}
	sum, err := ix.Checksum(rel)
	if err != nil {
		return false, err
	}
	want := md5.Sum(content)
	return sum == hex.EncodeToString(want[:]), nil
}

// MarkPresent records a file written during this run so later lookups see it
// without a rescan.
func (ix *Index) MarkPresent(rel string, size int64, sum string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files[rel] = &fileEntry{size: size, md5: sum, hashed: sum != ""}
}

// CountImages counts the image files directly inside the given relative
// directory, sidecars excluded. Validation compares this against the
// gallery's observed photo count.
func (ix *Index) CountImages(dirRel string) int {
	prefix := dirRel
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	count := 0
	for rel := range ix.files {
		if !strings.HasPrefix(rel, prefix) {
			continue
		}
		rest := rel[len(prefix):]
		if strings.Contains(rest, "/") {
			continue
		}
		if strings.HasSuffix(rest, SidecarSuffix) {
			continue
		}
		count++
	}
	return count
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
