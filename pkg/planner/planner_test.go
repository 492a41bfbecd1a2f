package planner

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"smugvault/pkg/inventory"
	"smugvault/pkg/state"
	"smugvault/pkg/storage"
)

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

func md5Of(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

func photo(id, name string, content []byte) inventory.Photo {
	return inventory.Photo{
		ID:       id,
		FileName: name,
		MD5:      md5Of(content),
		Size:     int64(len(content)),
	}
}

// threePhotoInventory is one folder holding one gallery of three photos.
func threePhotoInventory() (*inventory.Inventory, map[string][]byte) {
	bodies := map[string][]byte{
		"one.jpg":   []byte("first image"),
		"two.jpg":   []byte("second image"),
		"three.jpg": []byte("third image"),
	}
	g := &inventory.Gallery{
		ID:         "a1",
		Name:       "Iceland",
		FolderPath: []string{"Travel"},
		Photos: []inventory.Photo{
			photo("p1", "one.jpg", bodies["one.jpg"]),
			photo("p2", "two.jpg", bodies["two.jpg"]),
			photo("p3", "three.jpg", bodies["three.jpg"]),
		},
	}
	inv := &inventory.Inventory{Account: "alice", Galleries: []*inventory.Gallery{g}, FolderCount: 1}
	return inv, bodies
}

func scannedIndex(t *testing.T, root string) *state.Index {
	t.Helper()
	ix := state.NewIndex(root, nil)
	if err := ix.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return ix
}

// materialize writes a plan's downloads and sidecars to disk the way a
// successful run would.
func materialize(t *testing.T, root string, plan *Plan) {
	t.Helper()
	m, err := storage.NewManager(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, gm := range plan.GalleryMeta {
		if err := m.WriteFile(gm.RelPath, gm.Content); err != nil {
			t.Fatal(err)
		}
	}
	for _, item := range plan.Items {
		if err := m.WriteFile(item.SidecarRel, item.Sidecar); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFreshRunDownloadsEverything(t *testing.T) {
	inv, _ := threePhotoInventory()
	plan, err := Build(inv, scannedIndex(t, t.TempDir()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if plan.Downloads() != 3 || plan.Skipped != 0 {
		t.Errorf("downloads=%d skipped=%d, want 3 / 0", plan.Downloads(), plan.Skipped)
	}
	if len(plan.GalleryMeta) != 1 {
		t.Errorf("gallery meta items = %d, want 1", len(plan.GalleryMeta))
	}
	if got := plan.Items[0].RelPath; got != "Travel/Iceland/one.jpg" {
		t.Errorf("first item path = %q", got)
	}
	if plan.GalleryDirs["a1"] != "Travel/Iceland" {
		t.Errorf("gallery dir = %q", plan.GalleryDirs["a1"])
	}
}

func TestCompletedRunPlansNothing(t *testing.T) {
	root := t.TempDir()
	inv, bodies := threePhotoInventory()

	first, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	m, _ := storage.NewManager(root, nil)
	for _, item := range first.Items {
		body := bodies[filepath.Base(item.RelPath)]
		if _, _, err := m.SaveImage(item.RelPath, bytesReader(body), item.Photo.MD5, item.Photo.Size); err != nil {
			t.Fatal(err)
		}
	}
	materialize(t, root, first)

	second, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Items) != 0 || len(second.GalleryMeta) != 0 {
		t.Errorf("second run planned %d items and %d meta writes, want none",
			len(second.Items), len(second.GalleryMeta))
	}
	if second.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", second.Skipped)
	}
}

func TestCorruptFileIsReplanned(t *testing.T) {
	root := t.TempDir()
	inv, bodies := threePhotoInventory()

	first, _ := Build(inv, scannedIndex(t, root))
	m, _ := storage.NewManager(root, nil)
	for _, item := range first.Items {
		body := bodies[filepath.Base(item.RelPath)]
		if _, _, err := m.SaveImage(item.RelPath, bytesReader(body), item.Photo.MD5, item.Photo.Size); err != nil {
			t.Fatal(err)
		}
	}
	materialize(t, root, first)

	// Truncate one image in place.
	if err := os.WriteFile(filepath.Join(root, "Travel", "Iceland", "two.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	plan, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if plan.Downloads() != 1 {
		t.Fatalf("downloads = %d, want 1", plan.Downloads())
	}
	if plan.Items[0].RelPath != "Travel/Iceland/two.jpg" {
		t.Errorf("replanned %q, want two.jpg", plan.Items[0].RelPath)
	}
	if plan.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", plan.Skipped)
	}
}

func TestChangedMetadataRewritesOnlySidecar(t *testing.T) {
	root := t.TempDir()
	inv, bodies := threePhotoInventory()

	first, _ := Build(inv, scannedIndex(t, root))
	m, _ := storage.NewManager(root, nil)
	for _, item := range first.Items {
		body := bodies[filepath.Base(item.RelPath)]
		if _, _, err := m.SaveImage(item.RelPath, bytesReader(body), item.Photo.MD5, item.Photo.Size); err != nil {
			t.Fatal(err)
		}
	}
	materialize(t, root, first)

	inv.Galleries[0].Photos[0].Title = "New Title"
	plan, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(plan.Items))
	}
	if plan.Items[0].Action != ActionWriteMeta {
		t.Errorf("action = %s, want write_meta", plan.Items[0].Action)
	}
}

func TestCollidingNamesGetSuffixes(t *testing.T) {
	g := &inventory.Gallery{
		ID:   "a1",
		Name: "Dup",
		Photos: []inventory.Photo{
			photo("p1", "pic.jpg", []byte("a")),
			photo("p2", "pic.jpg", []byte("b")),
			photo("p3", "pic.jpg", []byte("c")),
		},
	}
	// Sibling galleries whose names sanitize to the same directory.
	g2 := &inventory.Gallery{ID: "a2", Name: "Dup."}
	g3 := &inventory.Gallery{ID: "a3", Name: "Dup "}
	inv := &inventory.Inventory{Galleries: []*inventory.Gallery{g, g2, g3}, FolderCount: 0}

	plan, err := Build(inv, scannedIndex(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	if got := plan.Items[0].RelPath; got != "Dup/pic.jpg" {
		t.Errorf("first = %q", got)
	}
	if got := plan.Items[1].RelPath; got != "Dup/pic_2.jpg" {
		t.Errorf("second = %q", got)
	}
	if got := plan.Items[2].RelPath; got != "Dup/pic_3.jpg" {
		t.Errorf("third = %q", got)
	}
	if plan.GalleryDirs["a2"] != "Dup_2" || plan.GalleryDirs["a3"] != "Dup_3" {
		t.Errorf("gallery dirs = %v", plan.GalleryDirs)
	}
}

func TestMissingRemoteChecksumRecordsLocalOne(t *testing.T) {
	root := t.TempDir()
	body := []byte("image without listed checksum")
	g := &inventory.Gallery{
		ID:     "a1",
		Name:   "G",
		Photos: []inventory.Photo{{ID: "p1", FileName: "pic.jpg", Size: int64(len(body))}},
	}
	inv := &inventory.Inventory{Galleries: []*inventory.Gallery{g}}

	first, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if first.Downloads() != 1 {
		t.Fatalf("downloads = %d, want 1", first.Downloads())
	}

	m, _ := storage.NewManager(root, nil)
	if _, _, err := m.SaveImage("G/pic.jpg", bytesReader(body), "", int64(len(body))); err != nil {
		t.Fatal(err)
	}

	second, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Items) != 1 || second.Items[0].Action != ActionWriteMeta {
		t.Fatalf("plan = %+v, want one write_meta item", second.Items)
	}
	if !bytes.Contains(second.Items[0].Sidecar, []byte(md5Of(body))) {
		t.Errorf("sidecar %q does not record the local checksum", second.Items[0].Sidecar)
	}

	// Once that sidecar lands the plan converges.
	materialize(t, root, second)
	third, err := Build(inv, scannedIndex(t, root))
	if err != nil {
		t.Fatal(err)
	}
	if len(third.Items) != 0 || third.Skipped != 1 {
		t.Errorf("third run planned %d items, skipped %d; want 0 / 1", len(third.Items), third.Skipped)
	}
}

func TestMissingFileNameFallsBackToID(t *testing.T) {
	g := &inventory.Gallery{
		ID:     "a1",
		Name:   "G",
		Photos: []inventory.Photo{{ID: "KEY123"}},
	}
	inv := &inventory.Inventory{Galleries: []*inventory.Gallery{g}}

	plan, err := Build(inv, scannedIndex(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Items[0].RelPath; got != "G/KEY123.jpg" {
		t.Errorf("path = %q, want G/KEY123.jpg", got)
	}
}
