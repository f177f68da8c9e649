package email

import "regexp"

// signaturePattern matches the RFC 3676 signature delimiter line ("--"
// or "-- ") and everything after it, through the end of the message.
// https://en.wikipedia.org/wiki/Signature_block#Standard_delimiter
var signaturePattern = regexp.MustCompile(`(?ms)^-- ?\r?$.*`)

// RemoveSignature strips the signature block from a message body.
// Removing it twice gives the same result as removing it once.
func RemoveSignature(text string) string {
	return signaturePattern.ReplaceAllString(text, "")
}
