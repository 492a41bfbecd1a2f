package inventory

import (
	"strings"

	"smugvault/pkg/smugmug"
)

// Photo is a leaf asset discovered during the walk.
type Photo struct {
	ID        string
	GalleryID string
	FileName  string
	Title     string
	Caption   string
	Keywords  []string

	// MD5 and Size are the remote-reported values, empty/zero when the API
	// did not supply them.
	MD5  string
	Size int64

	// Image carries the raw API record so the scheduler can resolve a
	// download URL without re-listing the album.
	Image smugmug.AlbumImage
}

// Gallery is an album together with the photos observed inside it.
type Gallery struct {
	ID          string
	Name        string
	Description string
	Keywords    string

	// AlbumURI is the API resource path used to list the gallery's images.
	AlbumURI string

	// FolderPath holds the raw names of ancestor folders, account root first.
	FolderPath []string

	// ReportedCount is the image count the API claims for this gallery.
	// Observed counts are authoritative; a mismatch is a reportable
	// discrepancy, never silently trusted.
	ReportedCount int

	// Photos lists the non-video images in API order.
	Photos []Photo

	// VideoCount counts assets excluded because video is unsupported.
	VideoCount int

	// DuplicateCount counts images the API returned twice under the same key.
	DuplicateCount int

	// Incomplete marks a gallery whose enumeration never succeeded. Its
	// Photos must not be treated as the full contents.
	Incomplete       bool
	IncompleteReason string
}

// PathString renders the gallery's location for logs and reports.
func (g *Gallery) PathString() string {
	if len(g.FolderPath) == 0 {
		return g.Name
	}
	return strings.Join(g.FolderPath, "/") + "/" + g.Name
}

// IncompleteSubtree records a folder or gallery whose enumeration exhausted
// retries. The subtree is excluded from counts rather than assumed empty.
type IncompleteSubtree struct {
	Path   string
	Reason string
}

// Counts are the per-run expected totals computed bottom-up from what the
// walk actually observed.
type Counts struct {
	Folders   int
	Galleries int
	Photos    int
}

// Inventory is the fully-resolved snapshot of the remote tree for one run.
type Inventory struct {
	Account     string
	Galleries   []*Gallery
	FolderCount int
	Incomplete  []IncompleteSubtree
}

// Counts sums the observed totals bottom-up.
func (inv *Inventory) Counts() Counts {
	c := Counts{
		Folders:   inv.FolderCount,
		Galleries: len(inv.Galleries),
	}
	for _, g := range inv.Galleries {
		c.Photos += len(g.Photos)
	}
	return c
}

// Complete reports whether every subtree was fully enumerated. Ancestor
// totals are not authoritative until this is true.
func (inv *Inventory) Complete() bool {
	return len(inv.Incomplete) == 0
}
