package smugmug

import (
	"encoding/json"
	"strings"
)

// URIRef is an API resource reference. Depending on the requested verbosity
// the API returns either a bare URI string or an object with a Uri field, so
// it unmarshals from both.
type URIRef string

// UnmarshalJSON accepts both `"/api/v2/..."` and `{"Uri": "/api/v2/..."}`.
func (u *URIRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = URIRef(s)
		return nil
	}

	var obj struct {
		Uri string `json:"Uri"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*u = URIRef(obj.Uri)
	return nil
}

func (u URIRef) String() string { return string(u) }
func (u URIRef) IsZero() bool   { return u == "" }

// Pages carries the API's pagination envelope.
type Pages struct {
	Total    int    `json:"Total"`
	Start    int    `json:"Start"`
	Count    int    `json:"Count"`
	NextPage string `json:"NextPage"`
}

// Folder is a container node grouping albums and sub-folders.
type Folder struct {
	NodeID string     `json:"NodeID"`
	Name   string     `json:"Name"`
	Uri    string     `json:"Uri"`
	Uris   FolderUris `json:"Uris"`
}

// FolderUris holds the child-listing endpoints of a folder.
type FolderUris struct {
	Folders      URIRef `json:"Folders"`
	FolderAlbums URIRef `json:"FolderAlbums"`
}

// Album is a gallery of photo assets.
type Album struct {
	AlbumKey    string `json:"AlbumKey"`
	NodeID      string `json:"NodeID"`
	Name        string `json:"Name"`
	Uri         string `json:"Uri"`
	Description string `json:"Description"`
	Keywords    string `json:"Keywords"`
	ImageCount  int    `json:"ImageCount"`
	Protected   bool   `json:"Protected"`
}

// AlbumImage is a single asset inside an album.
type AlbumImage struct {
	ImageKey     string    `json:"ImageKey"`
	FileName     string    `json:"FileName"`
	Title        string    `json:"Title"`
	Caption      string    `json:"Caption"`
	Keywords     string    `json:"Keywords"`
	KeywordArray []string  `json:"KeywordArray"`
	Uri          string    `json:"Uri"`
	IsVideo      bool      `json:"IsVideo"`
	ArchivedUri  string    `json:"ArchivedUri"`
	ArchivedMD5  string    `json:"ArchivedMD5"`
	ArchivedSize int64     `json:"ArchivedSize"`
	Uris         ImageUris `json:"Uris"`
}

// ImageUris holds the per-image endpoints used to resolve a download URL.
type ImageUris struct {
	ImageSizeDetails URIRef `json:"ImageSizeDetails"`
	LargestImage     URIRef `json:"LargestImage"`
	ImageDownload    URIRef `json:"ImageDownload"`
}

// KeywordList normalizes an image's keywords into a slice, preferring the
// structured array when the API provides one.
func (img *AlbumImage) KeywordList() []string {
	if len(img.KeywordArray) > 0 {
		return img.KeywordArray
	}
	if img.Keywords == "" {
		return nil
	}
	parts := strings.FieldsFunc(img.Keywords, func(r rune) bool {
		return r == ';' || r == ','
	})
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

// ImageSize is one entry of the image size details.
type ImageSize struct {
	Url  string `json:"Url"`
	Size int64  `json:"Size"`
}

// ImageSizeDetails lists the available renditions of an image, largest first
// in the preference order used for downloads.
type ImageSizeDetails struct {
	ImageSizeOriginal *ImageSize `json:"ImageSizeOriginal"`
	ImageSizeX5Large  *ImageSize `json:"ImageSizeX5Large"`
	ImageSizeX4Large  *ImageSize `json:"ImageSizeX4Large"`
	ImageSizeX3Large  *ImageSize `json:"ImageSizeX3Large"`
	ImageSizeX2Large  *ImageSize `json:"ImageSizeX2Large"`
	ImageSizeXLarge   *ImageSize `json:"ImageSizeXLarge"`
	ImageSizeLarge    *ImageSize `json:"ImageSizeLarge"`
}

// preferred returns the best available rendition URL, original first.
func (d *ImageSizeDetails) preferred() string {
	for _, size := range []*ImageSize{
		d.ImageSizeOriginal,
		d.ImageSizeX5Large,
		d.ImageSizeX4Large,
		d.ImageSizeX3Large,
		d.ImageSizeX2Large,
		d.ImageSizeXLarge,
		d.ImageSizeLarge,
	} {
		if size != nil && size.Url != "" {
			return size.Url
		}
	}
	return ""
}

// ResponseBody is the inner payload of every API response.
type ResponseBody struct {
	Folder           []Folder          `json:"Folder"`
	Album            []Album           `json:"Album"`
	AlbumImage       []AlbumImage      `json:"AlbumImage"`
	ImageSizeDetails *ImageSizeDetails `json:"ImageSizeDetails"`
	LargestImage     *ImageSize        `json:"LargestImage"`
	Pages            *Pages            `json:"Pages"`
}

type apiResponse struct {
	Response ResponseBody `json:"Response"`
	Code     int          `json:"Code"`
	Message  string       `json:"Message"`
}
