// Package identity defines the core data types and error taxonomy shared
// across the atdir store, resolver, and server layers.
package identity

import "time"

// NoEmailProvided is stored in place of a contact address when the
// registrant leaves the optional email field blank.
const NoEmailProvided = "no email provided"

// Record is one registered handle-to-DID mapping. Records are created
// exactly once by a successful registration and are never updated or
// deleted by the serving path.
type Record struct {
	Handle       string // fully qualified host, e.g. alice.example.com
	DID          string
	Label        string // leading segment of Handle, unique per domain
	Domain       string // shared serving domain
	Token        string // opaque management secret, issued once at creation
	Email        string
	Locked       bool // administrative freeze, not yet enforced
	Notes        string
	CreationTime time.Time
}

// CreateInput carries the registrant-supplied fields for a new [Record].
// Token and CreationTime are filled in by the store at insert time.
type CreateInput struct {
	Handle string
	Label  string
	DID    string
	Email  string
}
