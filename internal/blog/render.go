package blog

import (
	"fmt"
	"strings"
)

// baseURL is substituted by the static site generator at build time.
const baseURL = "{{ site.url }}"

// Render serializes a post as a markdown document: a front-matter block,
// the body text if any, then one anchor-wrapped image tag per attachment
// in extraction order. Pure function; the caller writes the file.
func Render(post *PostInfo) string {
	var b strings.Builder

	b.WriteString("---\n")
	// The title is a literal block scalar so embedded punctuation and
	// newlines survive untouched.
	b.WriteString("title: |\n")
	for _, line := range strings.Split(post.Title, "\n") {
		b.WriteString("    " + line + "\n")
	}
	fmt.Fprintf(&b, "author: %s\n", post.Author)
	fmt.Fprintf(&b, "date: %s\n", post.Date.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "permalink: %s\n", post.Permalink)
	b.WriteString("layout: post\n")
	b.WriteString("comments: true\n")
	b.WriteString("---\n")

	if post.Content != "" {
		b.WriteString("\n" + post.Content + "\n")
	}

	for _, img := range post.Attachments {
		fmt.Fprintf(&b,
			"\n<a href=\"%s%s\"><img src=\"%s%s\" width=\"%d\" height=\"%d\"></a>\n",
			baseURL, img.RelativePath,
			baseURL, img.Thumb.RelativePath,
			img.Thumb.Width, img.Thumb.Height,
		)
	}

	return b.String()
}
