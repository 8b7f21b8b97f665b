// Package validate provides the syntax checks for labels, handles, and
// DIDs. All predicates are pure and treat empty input as invalid; none of
// them touches storage.
package validate

import (
	"regexp"
	"strings"
)

// PLCLength is the exact byte length of a did:plc identifier string
// ("did:plc:" plus a 24-character base32 suffix).
const PLCLength = 32

var (
	// One DNS-safe segment, 1-63 characters, internal hyphens only.
	labelRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// Dot-separated label-shaped segments; the final segment is
	// alphabetic-led, per the atproto handle grammar.
	handleRe = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// Generic DID shape per the atproto DID recommendation. Deliberately
	// loose; registration validates against the stricter plc grammar.
	didRe = regexp.MustCompile(`^did:[a-z]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

	// did:plc has a fixed, auditable shape: 24 characters of RFC 4648
	// lowercase base32.
	plcRe     = regexp.MustCompile(`^did:plc:[a-z2-7]{24}$`)
	plcScanRe = regexp.MustCompile(`did:plc:[a-z2-7]{24}`)
)

// Label reports whether s is a single valid subdomain label.
func Label(s string) bool {
	return labelRe.MatchString(s)
}

// Handle reports whether s is a valid fully qualified handle.
func Handle(s string) bool {
	return handleRe.MatchString(s)
}

// DID reports whether s matches the generic did grammar.
func DID(s string) bool {
	return didRe.MatchString(s)
}

// PLC reports whether s is a well-formed did:plc identifier. Input is
// matched case-insensitively; the canonical form is lowercase.
func PLC(s string) bool {
	return plcRe.MatchString(strings.ToLower(s))
}

// ExtractPLC returns the first did:plc identifier embedded anywhere in s,
// lowered to canonical form, and whether one was found.
func ExtractPLC(s string) (string, bool) {
	m := plcScanRe.FindString(strings.ToLower(s))
	return m, m != ""
}
