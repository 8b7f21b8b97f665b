package server

import (
	"errors"
	"net/http"

	"github.com/atdir/atdir/internal/identity"
	"github.com/atdir/atdir/internal/netutil"
	"github.com/atdir/atdir/internal/validate"
)

// handleWellKnown answers the resolution query with the stored DID as
// plain text. Handles the label cannot be derived for, unknown handles,
// and corrupt rows all present as not found.
func (s *Server) handleWellKnown(w http.ResponseWriter, r *http.Request) {
	host := netutil.NormalizeHost(r.Host)
	if _, ok := netutil.DeriveLabel(host, s.cfg.Domain); !ok {
		writePage(w, notFoundPage())
		return
	}

	did, err := s.users.LookupDID(r.Context(), host)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", plainContent)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(did))
	case errors.Is(err, identity.ErrNotFound):
		writePage(w, notFoundPage())
	case errors.Is(err, identity.ErrCorruptRecord):
		s.log.Warn("corrupt record flagged for cleanup", "handle", host, "err", err)
		writePage(w, notFoundPage())
	default:
		s.log.Error("did lookup failed", "handle", host, "err", err)
		writePage(w, errorPage(err))
	}
}

// handleRoot selects the page for a subdomain: already-registered,
// reserved, or the registration form.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	host := netutil.NormalizeHost(r.Host)
	label, ok := netutil.DeriveLabel(host, s.cfg.Domain)
	if !ok || !validate.Label(label) {
		writePage(w, notFoundPage())
		return
	}

	registered, err := s.users.IsRegistered(r.Context(), host)
	if err != nil {
		s.log.Error("registration lookup failed", "handle", host, "err", err)
		writePage(w, errorPage(err))
		return
	}
	if registered {
		writePage(w, renderPage(http.StatusOK, "active", activeData{Handle: host}))
		return
	}

	reserved, err := s.reserved.IsReserved(r.Context(), label)
	if err != nil {
		s.log.Error("reserved lookup failed", "label", label, "err", err)
		writePage(w, errorPage(err))
		return
	}
	if reserved {
		writePage(w, renderPage(http.StatusOK, "reserved", reservedData{Label: label, Domain: s.cfg.Domain}))
		return
	}

	writePage(w, renderPage(http.StatusOK, "landing", landingData{Handle: host, Domain: s.cfg.Domain}))
}

// handleRegister drives the connection state machine over the submitted
// form fields and returns its accumulated answer.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, err := newConn(r.Host, s.cfg.Domain, s.resolver, s.log)
	if err != nil {
		writePage(w, notFoundPage())
		return
	}
	defer c.terminate()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFormBytes)
	if err := r.ParseForm(); err != nil {
		c.fail(identity.ErrEmptyData)
		writePage(w, c.answer)
		return
	}

	// Reserved labels are never registrable, regardless of DID validity.
	reserved, err := s.reserved.IsReserved(r.Context(), c.label)
	if err != nil {
		s.log.Error("reserved lookup failed", "label", c.label, "err", err)
		c.fail(err)
		writePage(w, c.answer)
		return
	}
	if reserved {
		writePage(w, renderPage(http.StatusOK, "reserved", reservedData{Label: c.label, Domain: s.cfg.Domain}))
		return
	}

	// Fields are delivered one at a time, did before email, mirroring how
	// the form transport hands them over. Email falls back to its sentinel
	// when the field is submitted blank or omitted entirely.
	if v, ok := formField(r, "did"); ok {
		c.deliver(r.Context(), "did", v)
	}
	v, _ := formField(r, "email")
	c.deliver(r.Context(), "email", v)

	if c.ready() {
		c.complete(r.Context(), s.users)
	}
	if c.state != stateResponded {
		c.fail(identity.ErrMissingData)
	}
	writePage(w, c.answer)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writePage(w, notFoundPage())
}

func formField(r *http.Request, key string) (string, bool) {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
