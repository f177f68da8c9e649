// Package imaging wraps the ImageMagick command-line tools. Resizing
// is delegated to convert so the result matches what the tool produces
// (including EXIF auto-orientation); no in-process image library is
// involved.
package imaging

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/mkw/email-to-blog/internal/mishap"
)

// Installed reports whether the convert tool can be run. The pipeline
// treats its absence as fatal before any message is processed.
func Installed() bool {
	return exec.Command("convert", "-version").Run() == nil
}

// Thumbnail resizes source to the given width, auto-orienting it, and
// writes the result to target. It returns the pixel dimensions of the
// produced file, as reported by identify. A source that is not an
// image surfaces as a convert failure.
func Thumbnail(source, target string, width uint16) (uint16, uint16, error) {
	convert := exec.Command(
		"convert", source,
		"-resize", strconv.Itoa(int(width)),
		"-auto-orient", target,
	)
	if out, err := convert.CombinedOutput(); err != nil {
		return 0, 0, &mishap.ToolError{Tool: "convert", Output: string(out), Err: err}
	}

	identify := exec.Command("identify", "-format", "%wx%h", target)
	out, err := identify.Output()
	if err != nil {
		return 0, 0, &mishap.ToolError{Tool: "identify", Err: err}
	}

	return parseDimensions(string(out))
}

// parseDimensions interprets identify's "WxH" output. Anything other
// than two positive integers is a tool error carrying the raw output.
func parseDimensions(s string) (uint16, uint16, error) {
	fields := strings.Split(strings.TrimSpace(s), "x")
	if len(fields) != 2 {
		return 0, 0, &mishap.ToolError{Tool: "identify", Output: s}
	}

	width, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil || width == 0 {
		return 0, 0, &mishap.ToolError{Tool: "identify", Output: s}
	}
	height, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil || height == 0 {
		return 0, 0, &mishap.ToolError{Tool: "identify", Output: s}
	}

	return uint16(width), uint16(height), nil
}
