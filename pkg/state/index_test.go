package state

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func md5Of(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

func TestScanMissingRootIsEmpty(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan of missing root: %v", err)
	}
	if ix.Has("anything") {
		t.Error("empty index reported a file")
	}
}

func TestMatchesByChecksum(t *testing.T) {
	root := t.TempDir()
	content := []byte("jpeg bytes")
	writeFile(t, root, "Travel/Iceland/one.jpg", content)

	ix := NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	ok, err := ix.Matches("Travel/Iceland/one.jpg", md5Of(content), int64(len(content)))
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if !ok {
		t.Error("intact file should match its remote checksum")
	}

	// Wrong checksum counts as absent.
	ok, err = ix.Matches("Travel/Iceland/one.jpg", md5Of([]byte("other")), 0)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if ok {
		t.Error("corrupt file must be treated as missing")
	}
}

func TestMatchesFallsBackToSize(t *testing.T) {
	root := t.TempDir()
	content := []byte("abcdef")
	writeFile(t, root, "g/pic.jpg", content)

	ix := NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if ok, _ := ix.Matches("g/pic.jpg", "", int64(len(content))); !ok {
		t.Error("size match should succeed when no checksum is reported")
	}
	if ok, _ := ix.Matches("g/pic.jpg", "", int64(len(content))+1); ok {
		t.Error("size mismatch should fail when no checksum is reported")
	}
	if ok, _ := ix.Matches("g/pic.jpg", "", 0); !ok {
		t.Error("bare presence should satisfy a descriptor with no checksum or size")
	}
}

func TestChecksumIsComputedOnceAndCached(t *testing.T) {
	root := t.TempDir()
	content := []byte("stable")
	writeFile(t, root, "g/pic.jpg", content)

	ix := NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	first, err := ix.Checksum("g/pic.jpg")
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}

	// Rewrite the file behind the index's back; the cached value sticks
	// for the rest of the run.
	writeFile(t, root, "g/pic.jpg", []byte("mutated"))
	second, err := ix.Checksum("g/pic.jpg")
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if first != second {
		t.Error("checksum should be cached after first computation")
	}
}

func TestContentMatches(t *testing.T) {
	root := t.TempDir()
	sidecar := []byte("title: Sunset\n")
	writeFile(t, root, "g/pic.jpg.yaml", sidecar)

	ix := NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if ok, _ := ix.ContentMatches("g/pic.jpg.yaml", sidecar); !ok {
		t.Error("identical sidecar content should match")
	}
	if ok, _ := ix.ContentMatches("g/pic.jpg.yaml", []byte("title: Dawn\n")); ok {
		t.Error("changed sidecar content should not match")
	}
	if ok, _ := ix.ContentMatches("g/missing.yaml", sidecar); ok {
		t.Error("missing sidecar should not match")
	}
}

func TestMarkPresentAndCountImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Travel/Iceland/one.jpg", []byte("a"))
	writeFile(t, root, "Travel/Iceland/one.jpg.yaml", []byte("meta"))
	writeFile(t, root, "Travel/Iceland/_gallery.yaml", []byte("meta"))
	writeFile(t, root, "Travel/Iceland/Nested/two.jpg", []byte("b"))

	ix := NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if got := ix.CountImages("Travel/Iceland"); got != 1 {
		t.Errorf("count = %d, want 1 (sidecars and nested dirs excluded)", got)
	}

	ix.MarkPresent("Travel/Iceland/three.jpg", 3, md5Of([]byte("ccc")))
	if got := ix.CountImages("Travel/Iceland"); got != 2 {
		t.Errorf("count after mark = %d, want 2", got)
	}
	ok, err := ix.Matches("Travel/Iceland/three.jpg", md5Of([]byte("ccc")), 3)
	if err != nil || !ok {
		t.Errorf("marked file should match without touching disk (ok=%v err=%v)", ok, err)
	}
}
