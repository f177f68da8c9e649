package blog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDate(t *testing.T) time.Time {
	t.Helper()
	date, err := time.Parse(time.RFC3339, "2020-06-01T10:00:00Z")
	require.NoError(t, err)
	return date
}

func TestNewFileConventionsPaths(t *testing.T) {
	outputDir := t.TempDir()

	c, err := NewFileConventions(outputDir, "media", "_posts", testDate(t), "sunset")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "_posts", "2020-06-01-sunset.md"), c.PostFilename())
	assert.Equal(t, "_posts/2020-06-01-sunset.md", c.PostPath())
	assert.Equal(t, "/sunset", c.Permalink())

	assert.Equal(t, filepath.Join(outputDir, "media", "2020", "2020-06-01-sunset-0.jpg"), c.AttachmentPath(0))
	assert.Equal(t, "/media/2020/2020-06-01-sunset-0.jpg", c.AttachmentURL(0))
	assert.Equal(t, filepath.Join(outputDir, "media", "2020", "2020-06-01-sunset-1-thumb.jpg"), c.AttachmentThumbPath(1))
	assert.Equal(t, "/media/2020/2020-06-01-sunset-1-thumb.jpg", c.AttachmentThumbURL(1))

	// The yearly media directory must exist after construction.
	info, err := os.Stat(filepath.Join(outputDir, "media", "2020"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewFileConventionsIdempotent(t *testing.T) {
	outputDir := t.TempDir()
	date := testDate(t)

	_, err := NewFileConventions(outputDir, "media", "_posts", date, "sunset")
	require.NoError(t, err)

	// A second post on the same day reuses the existing year directory.
	_, err = NewFileConventions(outputDir, "media", "_posts", date, "another")
	require.NoError(t, err)
}

func TestAttachmentOrdinalsNeverCollide(t *testing.T) {
	c, err := NewFileConventions(t.TempDir(), "media", "_posts", testDate(t), "sunset")
	require.NoError(t, err)

	seen := map[string]bool{}
	for n := 0; n < 10; n++ {
		for _, path := range []string{
			c.AttachmentPath(n),
			c.AttachmentThumbPath(n),
			c.AttachmentURL(n),
			c.AttachmentThumbURL(n),
		} {
			assert.False(t, seen[path], "duplicate path %s", path)
			seen[path] = true
		}
	}
}
