package dropbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkw/email-to-blog/internal/blog"
	"github.com/mkw/email-to-blog/internal/mishap"
)

func testClient(tokenURL, contentURL string) *Client {
	c := NewClient("app-key", "app-secret")
	c.tokenURL = tokenURL
	c.contentURL = contentURL
	return c
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "refresh-me", r.URL.Query().Get("refresh_token"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-key", user)
		assert.Equal(t, "app-secret", pass)

		_, _ = w.Write([]byte(`{"access_token": "shiny-token"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, "")
	token, err := client.AccessToken(context.Background(), "refresh-me")
	require.NoError(t, err)
	assert.Equal(t, "shiny-token", token)
}

func TestRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "authorization_code", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "one-time-code", r.URL.Query().Get("code"))

		_, _ = w.Write([]byte(`{"refresh_token": "long-lived"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, "")
	token, err := client.RefreshToken(context.Background(), "one-time-code")
	require.NoError(t, err)
	assert.Equal(t, "long-lived", token)
}

func TestAccessTokenBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>sign in</html>"))
	}))
	defer server.Close()

	client := testClient(server.URL, "")
	_, err := client.AccessToken(context.Background(), "refresh-me")

	require.Error(t, err)
	assert.True(t, mishap.IsContentError(err))

	var contentErr *mishap.ContentError
	require.ErrorAs(t, err, &contentErr)
	assert.Equal(t, "<html>sign in</html>", contentErr.Body)
}

func TestUploadPathNormalization(t *testing.T) {
	tests := []struct {
		name       string
		remotePath string
	}{
		{name: "without leading slash", remotePath: "foo.jpg"},
		{name: "with leading slash", remotePath: "/foo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArg, gotAuth, gotContentType string
			var gotBody []byte

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotArg = r.Header.Get("Dropbox-API-Arg")
				gotAuth = r.Header.Get("Authorization")
				gotContentType = r.Header.Get("Content-Type")
				gotBody, _ = io.ReadAll(r.Body)
			}))
			defer server.Close()

			client := testClient("", server.URL)
			localFile := writeTempFile(t, "foo.jpg", "jpeg bytes")

			err := client.Upload(context.Background(), "shiny-token", tt.remotePath, localFile)
			require.NoError(t, err)

			assert.Equal(t, `{"path":"/foo.jpg"}`, gotArg)
			assert.Equal(t, "Bearer shiny-token", gotAuth)
			assert.Equal(t, "application/octet-stream", gotContentType)
			assert.Equal(t, []byte("jpeg bytes"), gotBody)
		})
	}
}

func TestUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := testClient("", server.URL)
	localFile := writeTempFile(t, "foo.jpg", "jpeg bytes")

	err := client.Upload(context.Background(), "shiny-token", "foo.jpg", localFile)
	require.Error(t, err)

	var rejected *mishap.UploadRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusConflict, rejected.Status)
}

// publishFixture builds a post with one attachment whose files exist
// on disk.
func publishFixture(t *testing.T) *blog.PostInfo {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	return &blog.PostInfo{
		Slug:      "sunset",
		Title:     "Sunset",
		Author:    "Jane Doe",
		Permalink: "/sunset",
		Path:      "_posts/2020-06-01-sunset.md",
		Filename:  write("2020-06-01-sunset.md", "post"),
		Attachments: []blog.Image{
			{
				File:         write("2020-06-01-sunset-0.jpg", "image"),
				RelativePath: "/media/2020/2020-06-01-sunset-0.jpg",
				MIMEType:     "image/jpeg",
				Thumb: blog.Thumbnail{
					File:         write("2020-06-01-sunset-0-thumb.jpg", "thumb"),
					RelativePath: "/media/2020/2020-06-01-sunset-0-thumb.jpg",
					Width:        500,
					Height:       333,
				},
			},
		},
	}
}

func TestPublishUploadsInOrder(t *testing.T) {
	var mu sync.Mutex
	var paths []string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "shiny-token"}`))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		mu.Lock()
		paths = append(paths, arg.Path)
		mu.Unlock()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL+"/token", server.URL+"/upload")

	count, err := client.Publish(context.Background(), "refresh-me", publishFixture(t))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Post first, then each image followed by its thumbnail.
	assert.Equal(t, []string{
		"/_posts/2020-06-01-sunset.md",
		"/media/2020/2020-06-01-sunset-0.jpg",
		"/media/2020/2020-06-01-sunset-0-thumb.jpg",
	}, paths)
}

func TestPublishStopsAfterRejection(t *testing.T) {
	var uploads int

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "shiny-token"}`))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, _ *http.Request) {
		uploads++
		if uploads > 1 {
			w.WriteHeader(http.StatusConflict)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL+"/token", server.URL+"/upload")

	count, err := client.Publish(context.Background(), "refresh-me", publishFixture(t))
	require.Error(t, err)
	assert.True(t, mishap.IsUploadRejected(err))

	// The post made it; the rejected image stopped the sequence before
	// its thumbnail was attempted.
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, uploads)
}

func TestAuthCodeURL(t *testing.T) {
	rawURL := AuthCodeURL("app-key")

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	assert.Equal(t, "www.dropbox.com", parsed.Host)
	query := parsed.Query()
	assert.Equal(t, "app-key", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "offline", query.Get("token_access_type"))
	assert.NotEmpty(t, query.Get("state"))
}
