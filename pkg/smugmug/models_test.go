package smugmug

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestURIRefUnmarshalBothShapes(t *testing.T) {
	var ref URIRef
	if err := json.Unmarshal([]byte(`"/api/v2/album/abc"`), &ref); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if ref.String() != "/api/v2/album/abc" {
		t.Errorf("ref = %q", ref)
	}

	if err := json.Unmarshal([]byte(`{"Uri": "/api/v2/album/xyz", "Locator": "Album"}`), &ref); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if ref.String() != "/api/v2/album/xyz" {
		t.Errorf("ref = %q", ref)
	}

	if err := json.Unmarshal([]byte(`{"other": 1}`), &ref); err != nil {
		t.Fatalf("object without Uri: %v", err)
	}
	if !ref.IsZero() {
		t.Errorf("ref = %q, want zero", ref)
	}
}

func TestKeywordList(t *testing.T) {
	cases := []struct {
		name string
		img  AlbumImage
		want []string
	}{
		{
			name: "array preferred",
			img:  AlbumImage{KeywordArray: []string{"a", "b"}, Keywords: "ignored"},
			want: []string{"a", "b"},
		},
		{
			name: "semicolon separated",
			img:  AlbumImage{Keywords: "beach; sunset;  travel"},
			want: []string{"beach", "sunset", "travel"},
		},
		{
			name: "comma separated",
			img:  AlbumImage{Keywords: "one,two"},
			want: []string{"one", "two"},
		},
		{
			name: "empty",
			img:  AlbumImage{},
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.img.KeywordList(); !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestPreferredSizeOrder(t *testing.T) {
	d := &ImageSizeDetails{
		ImageSizeX3Large: &ImageSize{Url: "x3"},
		ImageSizeLarge:   &ImageSize{Url: "large"},
	}
	if got := d.preferred(); got != "x3" {
		t.Errorf("preferred = %q, want x3", got)
	}

	d.ImageSizeOriginal = &ImageSize{Url: "orig"}
	if got := d.preferred(); got != "orig" {
		t.Errorf("preferred = %q, want orig", got)
	}

	empty := &ImageSizeDetails{}
	if got := empty.preferred(); got != "" {
		t.Errorf("preferred = %q, want empty", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	if got := AbsoluteURL("/api/v2/album/abc"); got != BaseURL+"/api/v2/album/abc" {
		t.Errorf("got %q", got)
	}
	if got := AbsoluteURL("https://cdn.example.com/x.jpg"); got != "https://cdn.example.com/x.jpg" {
		t.Errorf("absolute URL rewritten: %q", got)
	}
	if got := AbsoluteURL(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestURLsCarryVerbosity(t *testing.T) {
	u := UserFoldersURL("alice")
	if want := BaseURL + "/api/v2/folder/user/alice!folders?_verbosity=1"; u != want {
		t.Errorf("folders url = %q, want %q", u, want)
	}

	img := ImagesURL(&Album{Uri: "/api/v2/album/abc"})
	if want := BaseURL + "/api/v2/album/abc!images?_expand=ImageSizeDetails&_verbosity=1"; img != want {
		t.Errorf("images url = %q, want %q", img, want)
	}

	if got := SubfoldersURL(&Folder{}); got != "" {
		t.Errorf("folder without subfolder endpoint should yield no URL, got %q", got)
	}
}
