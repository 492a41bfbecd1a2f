package storage

import (
	"gopkg.in/yaml.v3"

	errs "smugvault/pkg/errors"
)

// GallerySidecarName is the metadata file written into each gallery
// directory.
const GallerySidecarName = "_gallery.yaml"

// PhotoSidecar is the YAML document written next to each image. The content
// is a pure function of remote metadata, no timestamps, so an unchanged photo
// produces byte-identical output and the planner can skip the rewrite.
type PhotoSidecar struct {
	ImageKey string   `yaml:"image_key"`
	FileName string   `yaml:"file_name"`
	Title    string   `yaml:"title,omitempty"`
	Caption  string   `yaml:"caption,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
	MD5      string   `yaml:"md5,omitempty"`
	Size     int64    `yaml:"size,omitempty"`
}

// GallerySidecar is the YAML document written as _gallery.yaml inside each
// gallery directory.
type GallerySidecar struct {
	AlbumKey    string `yaml:"album_key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Keywords    string `yaml:"keywords,omitempty"`
	PhotoCount  int    `yaml:"photo_count"`
}

// Marshal renders the sidecar deterministically.
func (s *PhotoSidecar) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeParsing, "encoding sidecar for %s: %v", s.ImageKey, err)
	}
	return out, nil
}

// Marshal renders the sidecar deterministically.
func (s *GallerySidecar) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeParsing, "encoding sidecar for %s: %v", s.AlbumKey, err)
	}
	return out, nil
}
