package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/atdir/atdir/internal/identity"
	"github.com/atdir/atdir/internal/netutil"
	"github.com/atdir/atdir/internal/resolver"
	"github.com/atdir/atdir/internal/store/sqlite"
)

// connState tracks a registration request through its lifecycle. The
// transport may deliver form fields across several callbacks; the state
// machine gives the registration logic a single "all fields present"
// decision point independent of delivery granularity.
type connState int

const (
	stateNew connState = iota
	stateCollecting
	stateReady
	stateResponded
	stateTerminated
)

// conn is the per-request context for one in-flight registration. It is
// exclusively owned by the worker driving the request and never shared.
type conn struct {
	id    string // correlation id for log lines
	host  string
	label string

	did      string
	hasDID   bool
	email    string
	hasEmail bool

	state  connState
	answer page

	resolve *resolver.Resolver
	log     *slog.Logger
}

// newConn allocates the request context, deriving the label from the host.
// A host the label cannot be derived from rejects the request before any
// collection starts.
func newConn(host, domain string, res *resolver.Resolver, logger *slog.Logger) (*conn, error) {
	h := netutil.NormalizeHost(host)
	label, ok := netutil.DeriveLabel(h, domain)
	if !ok {
		return nil, identity.ErrInvalidHandle
	}
	c := &conn{
		id:      uuid.NewString(),
		host:    h,
		label:   label,
		state:   stateCollecting,
		resolve: res,
		log:     logger,
	}
	return c, nil
}

// deliver accepts one form field. Each field is validated (and, for the
// DID, resolved) before any further input is considered; a failing field
// renders the categorized error answer and ends collection.
func (c *conn) deliver(ctx context.Context, field, value string) {
	if c.state != stateCollecting {
		return
	}

	switch field {
	case "did":
		did, err := c.resolve.Resolve(ctx, value)
		if err != nil {
			c.log.Debug("did rejected", "conn", c.id, "handle", c.host, "err", err)
			c.fail(err)
			return
		}
		c.did = did
		c.hasDID = true
	case "email":
		if !c.hasDID {
			c.fail(identity.ErrMissingData)
			return
		}
		if value == "" {
			value = identity.NoEmailProvided
		}
		c.email = value
		c.hasEmail = true
	default:
		// Unknown fields are ignored.
		return
	}

	if c.hasDID && c.hasEmail {
		c.state = stateReady
	}
}

// ready reports whether all required fields have been collected.
func (c *conn) ready() bool {
	return c.state == stateReady
}

// complete performs the atomic record creation and renders the outcome.
func (c *conn) complete(ctx context.Context, store *sqlite.Store) {
	if c.state != stateReady {
		return
	}

	rec, err := store.CreateRecord(ctx, identity.CreateInput{
		Handle: c.host,
		Label:  c.label,
		DID:    c.did,
		Email:  c.email,
	})
	if err != nil {
		if isExpectedOutcome(err) {
			c.log.Debug("registration rejected", "conn", c.id, "handle", c.host, "err", err)
		} else {
			c.log.Error("registration failed", "conn", c.id, "handle", c.host, "err", err)
		}
		c.fail(err)
		return
	}

	c.log.Info("record created", "conn", c.id, "handle", rec.Handle, "did", rec.DID)
	c.answer = renderPage(http.StatusOK, "confirmation", confirmationData{Handle: rec.Handle, Token: rec.Token})
	c.state = stateResponded
}

// fail renders the categorized error answer and ends the request flow.
func (c *conn) fail(err error) {
	if c.state == stateResponded || c.state == stateTerminated {
		return
	}
	c.answer = errorPage(err)
	c.state = stateResponded
}

// terminate releases the context. It is safe to call on every exit path;
// only the first call has effect.
func (c *conn) terminate() {
	if c.state == stateTerminated {
		return
	}
	c.state = stateTerminated
}

// isExpectedOutcome distinguishes the failure categories that belong to
// the registration flow itself from genuine storage faults.
func isExpectedOutcome(err error) bool {
	return errors.Is(err, identity.ErrInvalidDID) ||
		errors.Is(err, identity.ErrInvalidLabel) ||
		errors.Is(err, identity.ErrInvalidHandle) ||
		errors.Is(err, identity.ErrMissingData) ||
		errors.Is(err, identity.ErrEmptyData) ||
		errors.Is(err, identity.ErrDuplicate)
}
