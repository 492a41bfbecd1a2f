package smugmug

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL of the SmugMug API
	BaseURL = "https://api.smugmug.com"

	// UserFoldersPath is the endpoint pattern for a user's top-level folders
	UserFoldersPath = "/api/v2/folder/user/%s!folders"

	// verbosityParam trims responses down to the fields the exporter reads
	verbosityParam = "1"

	// imagesExpand pre-expands size details so most images need no extra
	// round trip to resolve a download URL
	imagesExpand = "ImageSizeDetails"
)

// UserFoldersURL constructs the URL listing a user's top-level folders.
func UserFoldersURL(nickname string) string {
	return withParams(BaseURL+fmt.Sprintf(UserFoldersPath, url.PathEscape(nickname)), nil)
}

// AbsoluteURL resolves an API-relative URI against the base URL. Pagination
// and Uris references come back relative.
func AbsoluteURL(uri string) string {
	if uri == "" {
		return ""
	}
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	return BaseURL + uri
}

// ImagesURL constructs the paginated image listing URL for an album.
func ImagesURL(album *Album) string {
	return withParams(AbsoluteURL(album.Uri)+"!images", map[string]string{
		"_expand": imagesExpand,
	})
}

// AlbumsURL constructs the album listing URL for a folder.
func AlbumsURL(folder *Folder) string {
	return withParams(AbsoluteURL(folder.Uris.FolderAlbums.String()), map[string]string{
		"_expand": "ImageCount",
	})
}

// SubfoldersURL constructs the subfolder listing URL for a folder, or ""
// when the folder has no subfolder endpoint.
func SubfoldersURL(folder *Folder) string {
	if folder.Uris.Folders.IsZero() {
		return ""
	}
	return withParams(AbsoluteURL(folder.Uris.Folders.String()), nil)
}

// withParams appends _verbosity plus any extra query parameters, preserving
// parameters already present on the URI.
func withParams(rawURL string, extra map[string]string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("_verbosity", verbosityParam)
	for k, v := range extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
