// Package planner reconciles the remote inventory against the local state
// index and emits the minimal ordered work list. It performs no remote I/O;
// local reads happen only through the index's lazy checksum cache.
package planner

import (
	"fmt"
	"strings"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/inventory"
	"smugvault/pkg/state"
	"smugvault/pkg/storage"
)

// Action says what the scheduler must do for one photo.
type Action int

const (
	// ActionDownload fetches the image and writes both the file and its
	// sidecar.
	ActionDownload Action = iota
	// ActionWriteMeta rewrites only the sidecar; the image already
	// verifies.
	ActionWriteMeta
)

func (a Action) String() string {
	if a == ActionDownload {
		return "download"
	}
	return "write_meta"
}

// WorkItem is one unit of scheduled work. Sidecar content is rendered at plan
// time so the comparison and the eventual write use identical bytes.
type WorkItem struct {
	Photo   *inventory.Photo
	Gallery *inventory.Gallery
	Action  Action

	// RelPath is the image path relative to the export root, collision
	// suffixes already applied.
	RelPath    string
	SidecarRel string
	Sidecar    []byte
}

// SidecarWithChecksum re-renders the item's sidecar with a checksum computed
// during download, for photos whose listing carried none.
func (w *WorkItem) SidecarWithChecksum(sum string) ([]byte, error) {
	return photoSidecar(w.Photo, sum).Marshal()
}

// GalleryMeta is a gallery sidecar that needs writing.
type GalleryMeta struct {
	Gallery *inventory.Gallery
	RelPath string
	Content []byte
}

// Plan is the full reconciliation result for one run.
type Plan struct {
	Items       []WorkItem
	GalleryMeta []GalleryMeta

	// Skipped counts photos already present and verified, sidecar
	// included.
	Skipped int

	// GalleryDirs maps gallery ID to its directory relative to the export
	// root, for validation counting.
	GalleryDirs map[string]string
}

// Downloads counts items that need the image fetched.
func (p *Plan) Downloads() int {
	n := 0
	for _, item := range p.Items {
		if item.Action == ActionDownload {
			n++
		}
	}
	return n
}

// Build derives every target path, compares each photo against the local
// index, and returns the ordered work list. Items stay grouped by gallery in
// traversal order so downloads cluster directory by directory.
func Build(inv *inventory.Inventory, index *state.Index) (*Plan, error) {
	plan := &Plan{GalleryDirs: make(map[string]string, len(inv.Galleries))}

	// Sibling galleries can sanitize to the same directory name; the
	// second and later takers get numeric suffixes by traversal order.
	dirSeen := make(map[string]int)

	for _, gallery := range inv.Galleries {
		dir := galleryDir(gallery)
		dirSeen[dir]++
		if n := dirSeen[dir]; n > 1 {
			dir = fmt.Sprintf("%s_%d", dir, n)
		}
		plan.GalleryDirs[gallery.ID] = dir

		if err := planGallery(plan, gallery, dir, index); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func planGallery(plan *Plan, gallery *inventory.Gallery, dir string, index *state.Index) error {
	nameSeen := make(map[string]int, len(gallery.Photos))

	for i := range gallery.Photos {
		photo := &gallery.Photos[i]

		name := storage.SanitizeName(photo.FileName)
		if photo.FileName == "" {
			name = storage.SanitizeName(photo.ID) + ".jpg"
		}
		nameSeen[name]++
		if n := nameSeen[name]; n > 1 {
			name = storage.DisambiguateName(name, n)
		}

		rel := dir + "/" + name
		sidecarRel := rel + state.SidecarSuffix

		ok, err := index.Matches(rel, photo.MD5, photo.Size)
		if err != nil && errs.TypeOf(err) != errs.ErrorTypeNotFound {
			return err
		}

		// When the listing carries no checksum the sidecar records the
		// locally computed one, so later runs can still verify the file.
		md5 := photo.MD5
		if md5 == "" && ok {
			if md5, err = index.Checksum(rel); err != nil {
				return err
			}
		}
		sidecar, err := photoSidecar(photo, md5).Marshal()
		if err != nil {
			return err
		}
		if !ok {
			plan.Items = append(plan.Items, WorkItem{
				Photo:      photo,
				Gallery:    gallery,
				Action:     ActionDownload,
				RelPath:    rel,
				SidecarRel: sidecarRel,
				Sidecar:    sidecar,
			})
			continue
		}

		same, err := index.ContentMatches(sidecarRel, sidecar)
		if err != nil {
			return err
		}
		if !same {
			plan.Items = append(plan.Items, WorkItem{
				Photo:      photo,
				Gallery:    gallery,
				Action:     ActionWriteMeta,
				RelPath:    rel,
				SidecarRel: sidecarRel,
				Sidecar:    sidecar,
			})
			continue
		}
		plan.Skipped++
	}

	return planGalleryMeta(plan, gallery, dir, index)
}

func photoSidecar(photo *inventory.Photo, md5 string) *storage.PhotoSidecar {
	return &storage.PhotoSidecar{
		ImageKey: photo.ID,
		FileName: photo.FileName,
		Title:    photo.Title,
		Caption:  photo.Caption,
		Keywords: photo.Keywords,
		MD5:      md5,
		Size:     photo.Size,
	}
}

func planGalleryMeta(plan *Plan, gallery *inventory.Gallery, dir string, index *state.Index) error {
	content, err := (&storage.GallerySidecar{
		AlbumKey:    gallery.ID,
		Name:        gallery.Name,
		Description: gallery.Description,
		Keywords:    gallery.Keywords,
		PhotoCount:  len(gallery.Photos),
	}).Marshal()
	if err != nil {
		return err
	}

	rel := dir + "/" + storage.GallerySidecarName
	same, err := index.ContentMatches(rel, content)
	if err != nil {
		return err
	}
	if !same {
		plan.GalleryMeta = append(plan.GalleryMeta, GalleryMeta{
			Gallery: gallery,
			RelPath: rel,
			Content: content,
		})
	}
	return nil
}

func galleryDir(gallery *inventory.Gallery) string {
	parts := make([]string, 0, len(gallery.FolderPath)+1)
	for _, p := range gallery.FolderPath {
		parts = append(parts, storage.SanitizeName(p))
	}
	parts = append(parts, storage.SanitizeName(gallery.Name))
	return strings.Join(parts, "/")
}
