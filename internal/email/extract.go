package email

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/mkw/email-to-blog/internal/blog"
	"github.com/mkw/email-to-blog/internal/mishap"
)

// Thumbnailer produces a resized copy of source at target and reports
// the resulting pixel dimensions. The pipeline wires in the ImageMagick
// implementation; tests substitute a fake.
type Thumbnailer func(source, target string, width uint16) (uint16, uint16, error)

// Options carries the extraction parameters. Now lets tests pin the
// clock and defaults to time.Now; Thumbnail must be supplied so the
// extractor stays decoupled from the image tool.
type Options struct {
	// OutputDir is the root of the static site checkout.
	OutputDir string

	// MediaPath and PostsPath are directories relative to OutputDir.
	MediaPath string
	PostsPath string

	// Width is the thumbnail width in pixels.
	Width uint16

	// Now supplies the publication date when the message has no Date
	// header. Defaults to time.Now.
	Now func() time.Time

	// Thumbnail generates each attachment's thumbnail.
	Thumbnail Thumbnailer
}

// Extract builds a PostInfo from one parsed MIME tree. The sender,
// subject, and date fall back to defaults when absent; a Date header
// that is present but unparseable fails the whole extraction. Every
// discovered image part is written to disk with its thumbnail before
// the PostInfo is returned; any failure aborts with no partial post.
func Extract(root *Part, opts Options) (*blog.PostInfo, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	author, err := sender(root)
	if err != nil {
		return nil, err
	}
	if author == "" {
		author = "Someone"
	}

	date, err := date(root, now)
	if err != nil {
		return nil, err
	}

	content, hasBody := Body(root)
	if hasBody {
		content = strings.TrimSpace(RemoveSignature(content))
	}

	// The title is the subject line; a missing subject falls back to
	// the body text, and failing that a fixed placeholder.
	title := strings.TrimSpace(subject(root))
	if title == "" {
		title = content
	}
	if title == "" {
		title = "Untitled"
	}

	slug := blog.Slugify(title)

	conventions, err := blog.NewFileConventions(
		opts.OutputDir, opts.MediaPath, opts.PostsPath, date, slug,
	)
	if err != nil {
		return nil, err
	}

	attachments, err := saveAttachments(conventions, root, opts)
	if err != nil {
		return nil, err
	}

	return &blog.PostInfo{
		Slug:        slug,
		Title:       title,
		Author:      strings.TrimSpace(author),
		Content:     content,
		Date:        date,
		Permalink:   conventions.Permalink(),
		Attachments: attachments,
		Path:        conventions.PostPath(),
		Filename:    conventions.PostFilename(),
	}, nil
}

// sender returns the display name of the first From address, or ""
// when the header or the name is missing.
func sender(root *Part) (string, error) {
	if root.Header.Get("From") == "" {
		return "", nil
	}

	header := gomail.Header{Header: root.Header}
	addrs, err := header.AddressList("From")
	if err != nil {
		return "", &mishap.FieldError{Field: "From", Reason: err.Error()}
	}
	if len(addrs) == 0 {
		return "", nil
	}
	return addrs[0].Name, nil
}

// date returns the message date as a UTC instant. A missing header
// defaults to now; a header that is present but unparseable is an
// error, since silently publishing under the wrong date is worse than
// stopping.
func date(root *Part, now func() time.Time) (time.Time, error) {
	raw := root.Header.Get("Date")
	if raw == "" {
		return now().UTC(), nil
	}

	t, err := mail.ParseDate(raw)
	if err != nil {
		return time.Time{}, &mishap.FieldError{Field: "Date", Reason: err.Error()}
	}
	return t.UTC(), nil
}

// subject returns the decoded Subject header, or "" when absent.
func subject(root *Part) string {
	header := gomail.Header{Header: root.Header}
	text, err := header.Subject()
	if err != nil {
		return root.Header.Get("Subject")
	}
	return text
}

// saveAttachments writes every discovered image to its conventional
// path, in traversal order, generating a thumbnail for each. The
// zero-based loop index is the ordinal baked into filenames and URLs.
func saveAttachments(
	conventions *blog.FileConventions,
	root *Part,
	opts Options,
) ([]blog.Image, error) {
	thumbnail := opts.Thumbnail
	if thumbnail == nil {
		return nil, fmt.Errorf("no thumbnailer configured")
	}

	parts := FindAttachments(root)
	images := make([]blog.Image, 0, len(parts))

	for n, part := range parts {
		filename := conventions.AttachmentPath(n)
		if err := os.WriteFile(filename, part.Body, 0o644); err != nil {
			return nil, fmt.Errorf("saving attachment %d: %w", n, err)
		}

		thumbFile := conventions.AttachmentThumbPath(n)
		width, height, err := thumbnail(filename, thumbFile, opts.Width)
		if err != nil {
			return nil, fmt.Errorf("thumbnailing attachment %d: %w", n, err)
		}

		images = append(images, blog.Image{
			File:         filename,
			RelativePath: conventions.AttachmentURL(n),
			MIMEType:     part.ContentType,
			Thumb: blog.Thumbnail{
				File:         thumbFile,
				RelativePath: conventions.AttachmentThumbURL(n),
				Width:        width,
				Height:       height,
			},
		})
	}

	return images, nil
}

// ExtractMessage parses raw message bytes and extracts the post in one
// step. outline, when non-nil, receives the MIME structure before
// extraction begins.
func ExtractMessage(raw []byte, opts Options, outline io.Writer) (*blog.PostInfo, error) {
	root, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if outline != nil {
		Outline(outline, root)
	}
	return Extract(root, opts)
}
