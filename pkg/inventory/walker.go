package inventory

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/logger"
	"smugvault/pkg/retry"
	"smugvault/pkg/smugmug"
)

// CatalogClient is the remote catalog surface the walker consumes.
type CatalogClient interface {
	ListUserFolders(ctx context.Context, nickname string) ([]smugmug.Folder, error)
	ListSubfolders(ctx context.Context, folder *smugmug.Folder) ([]smugmug.Folder, error)
	ListAlbums(ctx context.Context, folder *smugmug.Folder) ([]smugmug.Album, error)
	ListImages(ctx context.Context, album *smugmug.Album) ([]smugmug.AlbumImage, error)
}

// Walker enumerates the remote tree into an Inventory. Folder listings run
// concurrently up to a bound smaller than download concurrency; throttling
// happens inside the client, per HTTP request, so the walker only carries
// the retry policy.
type Walker struct {
	client      CatalogClient
	retryCfg    *retry.Config
	concurrency int
	logger      logger.Logger
}

// NewWalker creates a walker.
func NewWalker(client CatalogClient, retryCfg *retry.Config, concurrency int, log logger.Logger) *Walker {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Walker{
		client:      client,
		retryCfg:    retryCfg,
		concurrency: concurrency,
		logger:      log,
	}
}

// folderNode is one entry of the explicit traversal worklist. The remote
// hierarchy has unbounded depth, so the walk keeps its own frontier instead
// of recursing.
type folderNode struct {
	folder   smugmug.Folder
	path     []string // ancestor folder names, this folder included
	children []*folderNode
	albums   []*Gallery

	incomplete bool
	reason     string
}

// Walk enumerates the account tree rooted at the user's top-level folders.
// A subtree whose enumeration exhausts retries is recorded as incomplete and
// excluded from counts; only account-level fatal errors abort the walk.
func (w *Walker) Walk(ctx context.Context, nickname string) (*Inventory, error) {
	inv := &Inventory{Account: nickname}

	roots, err := w.listRoots(ctx, nickname)
	if err != nil {
		if errs.IsFatalError(err) || ctx.Err() != nil {
			return nil, err
		}
		w.logger.WithError(err).Error("root folder listing never succeeded")
		inv.Incomplete = append(inv.Incomplete, IncompleteSubtree{Path: "/", Reason: err.Error()})
		return inv, nil
	}

	level := make([]*folderNode, len(roots))
	for i := range roots {
		level[i] = &folderNode{folder: roots[i], path: []string{roots[i].Name}}
	}
	allRoots := level

	// Breadth-first frontier; each level's folders are expanded
	// concurrently, but children are assembled in parent order so the
	// traversal stays deterministic.
	for len(level) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)

		for _, node := range level {
			node := node
			g.Go(func() error {
				return w.expandFolder(gctx, node)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []*folderNode
		for _, node := range level {
			inv.FolderCount++
			if node.incomplete {
				inv.Incomplete = append(inv.Incomplete, IncompleteSubtree{
					Path:   strings.Join(node.path, "/"),
					Reason: node.reason,
				})
				continue
			}
			next = append(next, node.children...)
		}
		level = next
	}

	// Assemble galleries depth-first over the built tree so work items
	// group by gallery in traversal order.
	var visit func(node *folderNode)
	visit = func(node *folderNode) {
		inv.Galleries = append(inv.Galleries, node.albums...)
		for _, child := range node.children {
			visit(child)
		}
	}
	for _, root := range allRoots {
		visit(root)
	}

	if err := w.fetchImages(ctx, inv); err != nil {
		return nil, err
	}

	counts := inv.Counts()
	logger.LogWalkProgress(counts.Folders, counts.Galleries, counts.Photos)
	return inv, nil
}

func (w *Walker) listRoots(ctx context.Context, nickname string) ([]smugmug.Folder, error) {
	var roots []smugmug.Folder
	err := w.do(ctx, func() error {
		var opErr error
		roots, opErr = w.client.ListUserFolders(ctx, nickname)
		return opErr
	})
	return roots, err
}

// expandFolder lists a folder's albums and subfolders. Exhausted retries mark
// the node incomplete; only fatal and cancellation errors propagate.
func (w *Walker) expandFolder(ctx context.Context, node *folderNode) error {
	var albums []smugmug.Album
	err := w.do(ctx, func() error {
		var opErr error
		albums, opErr = w.client.ListAlbums(ctx, &node.folder)
		return opErr
	})
	if err != nil {
		return w.markIncomplete(ctx, node, err)
	}

	for i := range albums {
		album := albums[i]
		g := &Gallery{
			ID:            album.AlbumKey,
			Name:          album.Name,
			AlbumURI:      album.Uri,
			Description:   album.Description,
			Keywords:      album.Keywords,
			FolderPath:    node.path,
			ReportedCount: album.ImageCount,
		}
		if album.Protected {
			// Password-protected galleries are unsupported; record the
			// subtree as incomplete instead of guessing a success path.
			g.Incomplete = true
			g.IncompleteReason = "password-protected gallery"
		}
		node.albums = append(node.albums, g)
	}

	var subfolders []smugmug.Folder
	err = w.do(ctx, func() error {
		var opErr error
		subfolders, opErr = w.client.ListSubfolders(ctx, &node.folder)
		return opErr
	})
	if err != nil {
		return w.markIncomplete(ctx, node, err)
	}

	for i := range subfolders {
		child := &folderNode{
			folder: subfolders[i],
			path:   append(append([]string{}, node.path...), subfolders[i].Name),
		}
		node.children = append(node.children, child)
	}
	return nil
}

// fetchImages fills in each gallery's photo list, a gallery per worker.
func (w *Walker) fetchImages(ctx context.Context, inv *Inventory) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	var mu sync.Mutex

	for _, gallery := range inv.Galleries {
		if gallery.Incomplete {
			mu.Lock()
			inv.Incomplete = append(inv.Incomplete, IncompleteSubtree{
				Path:   gallery.PathString(),
				Reason: gallery.IncompleteReason,
			})
			mu.Unlock()
			continue
		}

		gallery := gallery
		g.Go(func() error {
			album := smugmug.Album{AlbumKey: gallery.ID, Name: gallery.Name, Uri: gallery.AlbumURI}
			var images []smugmug.AlbumImage
			err := w.do(gctx, func() error {
				var opErr error
				images, opErr = w.client.ListImages(gctx, &album)
				return opErr
			})
			if err != nil {
				if errs.IsFatalError(err) || gctx.Err() != nil {
					return err
				}
				gallery.Incomplete = true
				gallery.IncompleteReason = err.Error()
				mu.Lock()
				inv.Incomplete = append(inv.Incomplete, IncompleteSubtree{
					Path:   gallery.PathString(),
					Reason: err.Error(),
				})
				mu.Unlock()
				return nil
			}

			w.collectPhotos(gallery, images)
			return nil
		})
	}
	return g.Wait()
}

// collectPhotos converts image records into Photos, skipping videos and true
// duplicates (same image key returned twice by the API).
func (w *Walker) collectPhotos(gallery *Gallery, images []smugmug.AlbumImage) {
	seen := make(map[string]bool, len(images))
	for i := range images {
		img := images[i]
		if img.IsVideo {
			gallery.VideoCount++
			continue
		}
		if img.ImageKey != "" && seen[img.ImageKey] {
			gallery.DuplicateCount++
			w.logger.DebugWithFields("duplicate image in listing", map[string]interface{}{
				"gallery":   gallery.Name,
				"image_key": img.ImageKey,
			})
			continue
		}
		seen[img.ImageKey] = true

		gallery.Photos = append(gallery.Photos, Photo{
			ID:        img.ImageKey,
			GalleryID: gallery.ID,
			FileName:  img.FileName,
			Title:     img.Title,
			Caption:   img.Caption,
			Keywords:  img.KeywordList(),
			MD5:       img.ArchivedMD5,
			Size:      img.ArchivedSize,
			Image:     img,
		})
	}

	observed := len(gallery.Photos) + gallery.VideoCount + gallery.DuplicateCount
	if gallery.ReportedCount != 0 && observed != gallery.ReportedCount {
		w.logger.WarnWithFields("reported count does not match observed count", map[string]interface{}{
			"gallery":  gallery.PathString(),
			"reported": gallery.ReportedCount,
			"observed": observed,
		})
	}
}

// markIncomplete records a failed subtree, propagating only fatal errors.
func (w *Walker) markIncomplete(ctx context.Context, node *folderNode, err error) error {
	if errs.IsFatalError(err) || ctx.Err() != nil {
		return err
	}
	node.incomplete = true
	node.reason = err.Error()
	w.logger.WithError(err).WithField("folder", strings.Join(node.path, "/")).
		Warn("subtree enumeration exhausted retries, marking incomplete")
	return nil
}

// do runs one remote operation under the retry policy.
func (w *Walker) do(ctx context.Context, op retry.Operation) error {
	cfg := *w.retryCfg
	cfg.Context = ctx
	return retry.Do(op, &cfg)
}
