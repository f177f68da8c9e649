// Package dropbox uploads a rendered post and its media to Dropbox.
// It covers the one-time authorization-code exchange, the per-run
// refresh-token-for-access-token exchange, and the sequential file
// uploads. There are no retries: the first failure aborts the run.
package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkw/email-to-blog/internal/blog"
	"github.com/mkw/email-to-blog/internal/mishap"
)

const (
	authorizeURL      = "https://www.dropbox.com/oauth2/authorize"
	defaultTokenURL   = "https://api.dropboxapi.com/oauth2/token"
	defaultContentURL = "https://content.dropboxapi.com/2/files/upload"
)

// Client is a thin HTTP client for the Dropbox OAuth2 and content
// endpoints, authenticating token requests with the app credentials
// and uploads with a bearer access token.
type Client struct {
	appKey     string
	appSecret  string
	tokenURL   string
	contentURL string
	httpClient *http.Client
}

// NewClient creates a Dropbox client for the given app credentials
// (the app key is also called the client ID).
func NewClient(appKey, appSecret string) *Client {
	return &Client{
		appKey:     appKey,
		appSecret:  appSecret,
		tokenURL:   defaultTokenURL,
		contentURL: defaultContentURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthCodeURL builds the consent URL the user visits once to obtain an
// authorization code. Requesting offline access makes the exchange
// return a long-lived refresh token.
func AuthCodeURL(appKey string) string {
	query := url.Values{
		"client_id":         {appKey},
		"response_type":     {"code"},
		"token_access_type": {"offline"},
		"state":             {uuid.NewString()},
	}
	return authorizeURL + "?" + query.Encode()
}

// RefreshToken exchanges a one-time authorization code for a refresh
// token.
func (c *Client) RefreshToken(ctx context.Context, code string) (string, error) {
	body, err := c.token(ctx, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &mishap.ContentError{Body: string(body), Reason: err.Error()}
	}
	if result.RefreshToken == "" {
		return "", &mishap.ContentError{Body: string(body), Reason: "no refresh_token in response"}
	}

	return result.RefreshToken, nil
}

// AccessToken exchanges a refresh token for a short-lived access token.
func (c *Client) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	body, err := c.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &mishap.ContentError{Body: string(body), Reason: err.Error()}
	}
	if result.AccessToken == "" {
		return "", &mishap.ContentError{Body: string(body), Reason: "no access_token in response"}
	}

	return result.AccessToken, nil
}

// token POSTs to the oauth2/token endpoint with the given query
// parameters and basic-auth app credentials, returning the raw
// response body.
func (c *Client) token(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.tokenURL+"?"+params.Encode(), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.appKey, c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	return body, nil
}

// apiArg is the JSON argument object conveyed in the Dropbox-API-Arg
// header of an upload request.
type apiArg struct {
	Path string `json:"path"`
}

// Upload sends one local file to the given remote relative path as a
// single binary-body POST. Anything other than HTTP 200 rejects the
// upload and carries the status back to the caller.
func (c *Client) Upload(ctx context.Context, token, remotePath, localFile string) error {
	file, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localFile, err)
	}
	defer file.Close()

	arg, err := json.Marshal(apiArg{Path: ensureLeadingSlash(remotePath)})
	if err != nil {
		return fmt.Errorf("encoding upload argument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL, file)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", remotePath, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &mishap.UploadRejectedError{Status: resp.StatusCode}
	}

	return nil
}

// Publish exchanges the refresh token for an access token, then
// uploads the post file followed by each attachment and its thumbnail,
// in extraction order. The first failure stops the sequence; there is
// no partial-success continuation. It returns the number of files
// uploaded.
func (c *Client) Publish(ctx context.Context, refreshToken string, post *blog.PostInfo) (int, error) {
	token, err := c.AccessToken(ctx, refreshToken)
	if err != nil {
		return 0, err
	}

	uploaded := 0

	// The post goes first so a failed run is easy to diagnose: if the
	// post is present remotely, the failure was in the media.
	if err := c.Upload(ctx, token, post.Path, post.Filename); err != nil {
		return uploaded, err
	}
	uploaded++

	for _, img := range post.Attachments {
		if err := c.Upload(ctx, token, img.RelativePath, img.File); err != nil {
			return uploaded, err
		}
		uploaded++

		if err := c.Upload(ctx, token, img.Thumb.RelativePath, img.Thumb.File); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	return uploaded, nil
}

// ensureLeadingSlash adds exactly one leading slash to a remote path.
func ensureLeadingSlash(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}
