package blog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonSlugChars matches runs of anything that is not a lowercase
	// letter, digit, or hyphen.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches runs of two or more hyphens.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a post title to a URL-safe slug: accents are
// transliterated, everything is lowercased, and runs of non-alphanumeric
// characters collapse to single hyphens with no leading or trailing
// hyphen. Slugs are not globally unique; the date prefix in the file
// stem disambiguates same-title posts on different days.
func Slugify(title string) string {
	// Decompose accented characters and drop the combining marks.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, title)

	result = strings.ToLower(result)
	result = nonSlugChars.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
