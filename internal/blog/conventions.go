package blog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Attachments are always written as .jpg regardless of the source MIME
// type. Image.MIMEType preserves the real type; changing this would
// change every published URL, so the extension stays fixed for now.
const attachmentExt = "jpg"

// FileConventions derives every filesystem path and site-relative URL
// for one post and its media from the post date and slug. All
// attachment filenames share the "YYYY-MM-DD-slug" stem and differ only
// by a zero-based ordinal and an optional -thumb suffix, so names never
// collide within a post, and the date prefix keeps stems unique across
// posts (two same-title posts on the same day will still collide).
type FileConventions struct {
	postMediaDir string
	postMediaURL string
	permalink    string
	stem         string
	postPath     string
	postFilename string
}

// NewFileConventions computes the conventions for one post and makes
// sure the yearly media directory exists. Creating the directory is the
// only side effect; calling it again with the same date is a no-op.
func NewFileConventions(
	outputDir, mediaPath, postsPath string,
	date time.Time,
	slug string,
) (*FileConventions, error) {
	// Media lives in separate yearly subdirectories.
	year := date.UTC().Format("2006")
	postMediaDir := filepath.Join(outputDir, mediaPath, year)

	if err := os.MkdirAll(postMediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir %s: %w", postMediaDir, err)
	}

	// All filenames for this post start with the stem.
	stem := fmt.Sprintf("%s-%s", date.UTC().Format("2006-01-02"), slug)

	return &FileConventions{
		postMediaDir: postMediaDir,
		postMediaURL: fmt.Sprintf("/%s/%s", mediaPath, year),
		permalink:    "/" + slug,
		stem:         stem,
		postPath:     fmt.Sprintf("%s/%s.md", postsPath, stem),
		postFilename: filepath.Join(outputDir, postsPath, stem+".md"),
	}, nil
}

// PostFilename is the local path the markdown file is written to.
func (c *FileConventions) PostFilename() string {
	return c.postFilename
}

// PostPath is the remote relative path of the markdown file.
func (c *FileConventions) PostPath() string {
	return c.postPath
}

// Permalink is the site-relative URL of the post, with no date component.
func (c *FileConventions) Permalink() string {
	return c.permalink
}

// AttachmentPath is the local path for the nth attachment (zero-based,
// in extraction order).
func (c *FileConventions) AttachmentPath(n int) string {
	return filepath.Join(c.postMediaDir, fmt.Sprintf("%s-%d.%s", c.stem, n, attachmentExt))
}

// AttachmentURL is the site-relative URL for the nth attachment.
func (c *FileConventions) AttachmentURL(n int) string {
	return fmt.Sprintf("%s/%s-%d.%s", c.postMediaURL, c.stem, n, attachmentExt)
}

// AttachmentThumbPath is the local path for the nth attachment's thumbnail.
func (c *FileConventions) AttachmentThumbPath(n int) string {
	return filepath.Join(c.postMediaDir, fmt.Sprintf("%s-%d-thumb.%s", c.stem, n, attachmentExt))
}

// AttachmentThumbURL is the site-relative URL for the nth attachment's
// thumbnail.
func (c *FileConventions) AttachmentThumbURL(n int) string {
	return fmt.Sprintf("%s/%s-%d-thumb.%s", c.postMediaURL, c.stem, n, attachmentExt)
}
