// Package email turns the raw bytes of one RFC 822 message into a
// PostInfo: it parses the MIME tree, picks the text body and the image
// attachments, and persists the attachments under the post's naming
// conventions.
package email

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // register charset decoding
)

// Part is one node of a parsed MIME tree. Leaf parts carry their
// decoded body bytes; multipart containers carry their children in
// wire order. Traversal is strictly top-down, so no parent references
// are kept.
type Part struct {
	// ContentType is the lowercased "type/subtype" of the part.
	ContentType string

	// Header gives access to the part's raw headers.
	Header message.Header

	// Body holds the transfer-decoded content of a leaf part.
	Body []byte

	// Children are the sub-parts of a multipart container, in order.
	Children []*Part
}

// Parse reads a full RFC 822 message and builds its MIME tree. The
// body bytes of each leaf are decoded from their transfer encoding and
// charset as they are read.
func Parse(r io.Reader) (*Part, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return buildPart(entity)
}

func buildPart(e *message.Entity) (*Part, error) {
	contentType, _, err := e.Header.ContentType()
	if err != nil {
		return nil, fmt.Errorf("reading content type: %w", err)
	}

	part := &Part{
		ContentType: strings.ToLower(contentType),
		Header:      e.Header,
	}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, fmt.Errorf("reading part: %w", err)
			}
			childPart, err := buildPart(child)
			if err != nil {
				return nil, err
			}
			part.Children = append(part.Children, childPart)
		}
		return part, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", part.ContentType, err)
	}
	part.Body = body
	return part, nil
}

// Body returns the decoded text of the first text/plain part, searching
// depth-first left-to-right. The second result is false when the tree
// contains no text/plain part at all.
func Body(p *Part) (string, bool) {
	if p.ContentType == "text/plain" {
		// Wire-format line endings have no business in markdown.
		return strings.ReplaceAll(string(p.Body), "\r\n", "\n"), true
	}
	for _, child := range p.Children {
		if text, ok := Body(child); ok {
			return text, ok
		}
	}
	return "", false
}

// FindAttachments collects every image part in depth-first pre-order.
// An image part is terminal: its own children, if any, are not
// searched. The order is stable for a given tree and determines the
// attachment filename ordinals, and therefore the published URLs.
func FindAttachments(p *Part) []*Part {
	if strings.HasPrefix(p.ContentType, "image/") {
		return []*Part{p}
	}
	var found []*Part
	for _, child := range p.Children {
		found = append(found, FindAttachments(child)...)
	}
	return found
}

// Outline writes the structure of the tree, one line per part with its
// content type and child count, for debugging irregular messages.
func Outline(w io.Writer, p *Part) {
	describePart(w, "+", p)
}

func describePart(w io.Writer, prefix string, p *Part) {
	fmt.Fprintf(w, "%s %s (children: %d)\n", prefix, p.ContentType, len(p.Children))
	for _, child := range p.Children {
		describePart(w, "--"+prefix, child)
	}
}
