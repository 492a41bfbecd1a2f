// Package smugmug implements a minimal SmugMug API v2 client: OAuth 1.0a
// request signing, paginated folder/album/image listings, download URL
// resolution, and typed error classification.
//
// The client only covers the read endpoints the exporter needs. Responses
// are requested with _verbosity=1, which is why URI references unmarshal
// from both bare strings and {"Uri": ...} objects.
package smugmug
