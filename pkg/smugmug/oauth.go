package smugmug

import (
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
)

// OAuth1Credentials is the token material for OAuth 1.0a request signing.
// The SmugMug API accepts no other authentication for full-account access.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Valid reports whether the credentials are usable for signing.
func (c *OAuth1Credentials) Valid() bool {
	return c != nil && c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// signedHTTPClient builds an http.Client whose transport signs every request
// with HMAC-SHA1 per RFC 5849.
func signedHTTPClient(creds *OAuth1Credentials, timeout time.Duration) *http.Client {
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := cfg.Client(oauth1.NoContext, token)
	client.Timeout = timeout
	return client
}
