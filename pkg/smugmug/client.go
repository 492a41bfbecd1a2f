package smugmug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/logger"
	"smugvault/pkg/ratelimit"
)

// Client talks to the SmugMug API v2. All calls classify failures with the
// typed errors in pkg/errors so callers can tell transient from fatal. API
// requests go through an OAuth-signing transport; downloads hit pre-signed
// CDN links and use a plain transport.
type Client struct {
	apiClient *http.Client
	cdnClient *http.Client
	limiter   ratelimit.Limiter
	userAgent string
	logger    logger.Logger
}

// NewClient creates a new API client. creds may be nil for endpoints that
// accept anonymous access (only useful in tests).
func NewClient(timeout time.Duration, creds *OAuth1Credentials, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	plain := &http.Client{Timeout: timeout}
	api := plain
	if creds.Valid() {
		api = signedHTTPClient(creds, timeout)
	}
	return &Client{
		apiClient: api,
		cdnClient: plain,
		limiter:   ratelimit.Noop{},
		userAgent: "smugvault/1.0",
		logger:    log,
	}
}

// SetUserAgent overrides the User-Agent sent with every request.
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetLimiter throttles every outbound HTTP request, downloads included.
// Pagination and rendition lookups each cost a token, so the limiter sees
// the real request rate rather than one token per logical listing.
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.Noop{}
	}
	c.limiter = l
}

// get performs a GET request, signed through the OAuth transport unless the
// URL is a pre-signed CDN link.
func (c *Client) get(ctx context.Context, url string, signed bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	httpClient := c.cdnClient
	if signed {
		httpClient = c.apiClient
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Newf(errs.ErrorTypeNetwork, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// GetJSON performs a signed GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.get(ctx, url, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return nil
}

// checkResponseStatus maps HTTP status codes onto the error taxonomy.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "authentication failed", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		logger.LogRateLimit(resp.Request.URL.String(), retryAfter)
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	default:
		return nil
	}
}

// listPages drains a paginated listing, invoking collect for each page, until
// the API stops returning a next page.
func (c *Client) listPages(ctx context.Context, firstURL string, collect func(*ResponseBody)) error {
	url := firstURL
	for url != "" {
		var resp apiResponse
		if err := c.GetJSON(ctx, url, &resp); err != nil {
			return err
		}
		collect(&resp.Response)

		url = ""
		if resp.Response.Pages != nil && resp.Response.Pages.NextPage != "" {
			url = AbsoluteURL(resp.Response.Pages.NextPage)
		}
	}
	return nil
}

// ListUserFolders lists the top-level folders of an account.
func (c *Client) ListUserFolders(ctx context.Context, nickname string) ([]Folder, error) {
	var folders []Folder
	err := c.listPages(ctx, UserFoldersURL(nickname), func(body *ResponseBody) {
		folders = append(folders, body.Folder...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing folders for %q: %w", nickname, err)
	}
	return folders, nil
}

// ListSubfolders lists the child folders of a folder.
func (c *Client) ListSubfolders(ctx context.Context, folder *Folder) ([]Folder, error) {
	url := SubfoldersURL(folder)
	if url == "" {
		return nil, nil
	}
	var folders []Folder
	err := c.listPages(ctx, url, func(body *ResponseBody) {
		folders = append(folders, body.Folder...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing subfolders of %q: %w", folder.Name, err)
	}
	return folders, nil
}

// ListAlbums lists the albums directly inside a folder.
func (c *Client) ListAlbums(ctx context.Context, folder *Folder) ([]Album, error) {
	url := AlbumsURL(folder)
	if url == "" {
		return nil, nil
	}
	var albums []Album
	err := c.listPages(ctx, url, func(body *ResponseBody) {
		albums = append(albums, body.Album...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing albums of %q: %w", folder.Name, err)
	}
	return albums, nil
}

// ListImages lists every image of an album, following pagination.
func (c *Client) ListImages(ctx context.Context, album *Album) ([]AlbumImage, error) {
	var images []AlbumImage
	err := c.listPages(ctx, ImagesURL(album), func(body *ResponseBody) {
		images = append(images, body.AlbumImage...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing images of %q: %w", album.Name, err)
	}
	return images, nil
}

// ResolveImageURL finds the best download URL for an image: the original
// rendition when size details are available, then the archived original,
// then the largest rendition, then the generic download endpoint.
func (c *Client) ResolveImageURL(ctx context.Context, img *AlbumImage) (string, error) {
	if !img.Uris.ImageSizeDetails.IsZero() {
		var resp apiResponse
		err := c.GetJSON(ctx, withParams(AbsoluteURL(img.Uris.ImageSizeDetails.String()), nil), &resp)
		if err == nil && resp.Response.ImageSizeDetails != nil {
			if url := resp.Response.ImageSizeDetails.preferred(); url != "" {
				return url, nil
			}
		} else if err != nil && errs.IsFatalError(err) {
			return "", err
		}
	}

	if img.ArchivedUri != "" {
		return img.ArchivedUri, nil
	}

	if !img.Uris.LargestImage.IsZero() {
		var resp apiResponse
		err := c.GetJSON(ctx, withParams(AbsoluteURL(img.Uris.LargestImage.String()), nil), &resp)
		if err == nil && resp.Response.LargestImage != nil && resp.Response.LargestImage.Url != "" {
			return resp.Response.LargestImage.Url, nil
		} else if err != nil && errs.IsFatalError(err) {
			return "", err
		}
	}

	if !img.Uris.ImageDownload.IsZero() {
		return AbsoluteURL(img.Uris.ImageDownload.String()), nil
	}

	return "", errs.Newf(errs.ErrorTypeNotFound, "no download URL for image %s", img.ImageKey)
}

// Download opens a stream of the image content. Image URLs are pre-signed
// CDN links, so the request is not OAuth-signed.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, url, false)
	if err != nil {
		return nil, err
	}
	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
