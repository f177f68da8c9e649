// Package mishap defines the failure kinds the pipeline can surface.
// Every external collaborator (mail server, MIME parser, filesystem,
// image tool, storage API) maps onto one of these so that callers can
// branch on the kind of failure rather than on message text.
package mishap

import (
	"errors"
	"fmt"
)

// FieldError indicates that a message header was present but could not
// be interpreted (e.g., an unparseable Date header). Missing optional
// headers are not FieldErrors; they fall back to defaults.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("bad email field %s: %s", e.Field, e.Reason)
}

// IsFieldError reports whether err (or any error in its chain) is a FieldError.
func IsFieldError(err error) bool {
	var fieldErr *FieldError
	return errors.As(err, &fieldErr)
}

// ToolError indicates that an external image tool failed, or produced
// output that could not be interpreted. Output holds whatever the tool
// wrote so the operator can see what was actually produced.
type ToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s produced unexpected output: %q", e.Tool, e.Output)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IsToolError reports whether err (or any error in its chain) is a ToolError.
func IsToolError(err error) bool {
	var toolErr *ToolError
	return errors.As(err, &toolErr)
}

// UploadRejectedError indicates the storage API answered an upload or
// token request with a non-200 status. It aborts the remaining upload
// sequence immediately.
type UploadRejectedError struct {
	Status int
}

func (e *UploadRejectedError) Error() string {
	return fmt.Sprintf("upload failed: HTTP %d", e.Status)
}

// IsUploadRejected reports whether err (or any error in its chain) is an
// UploadRejectedError.
func IsUploadRejected(err error) bool {
	var rejected *UploadRejectedError
	return errors.As(err, &rejected)
}

// ContentError indicates an API response body that could not be parsed
// as the expected JSON. Body carries the raw text verbatim.
type ContentError struct {
	Body   string
	Reason string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("json parsing failed, got: %s. Reason: %s", e.Body, e.Reason)
}

// IsContentError reports whether err (or any error in its chain) is a
// ContentError.
func IsContentError(err error) bool {
	var contentErr *ContentError
	return errors.As(err, &contentErr)
}
