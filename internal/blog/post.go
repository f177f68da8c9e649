// Package blog holds the in-memory representation of a single post
// extracted from an email, the file and URL naming conventions shared
// by the post and its media, and the markdown renderer.
package blog

import (
	"fmt"
	"os"
	"time"
)

// Thumbnail is the resized copy of an attachment image, produced right
// after the full-size image is written to disk.
type Thumbnail struct {
	// File is the local path of the thumbnail image.
	File string

	// RelativePath is the site-relative URL of the thumbnail.
	RelativePath string

	// Width and Height are the resulting pixel dimensions.
	Width  uint16
	Height uint16
}

// Image is one attachment discovered in the message, in extraction
// order. The order determines the filename ordinal and the final URL.
type Image struct {
	// File is the local path of the full-size saved image.
	File string

	// RelativePath is the site-relative URL of the full-size image.
	RelativePath string

	// MIMEType is the content type of the originating MIME part. The
	// saved file currently always uses a .jpg extension regardless;
	// the type is carried so the conventions could honor it later.
	MIMEType string

	// Thumb is the resized copy of this image.
	Thumb Thumbnail
}

// PostInfo is everything needed to render and publish one blog post.
// It is constructed once by the extractor and never mutated.
type PostInfo struct {
	Slug    string
	Title   string
	Author  string
	Content string // empty when the message had no usable text body
	Date    time.Time

	// Permalink is derived from the slug alone, with no date component.
	Permalink string

	// Attachments are the saved images in extraction order.
	Attachments []Image

	// Path is the remote relative path of the markdown file.
	Path string

	// Filename is the local path the markdown file is written to.
	Filename string
}

// Write renders the post and writes the markdown file to post.Filename.
func Write(post *PostInfo) error {
	if err := os.WriteFile(post.Filename, []byte(Render(post)), 0o644); err != nil {
		return fmt.Errorf("writing post %s: %w", post.Filename, err)
	}
	return nil
}
