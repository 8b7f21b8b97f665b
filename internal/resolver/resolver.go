// Package resolver recovers a did:plc identifier from registrant input.
// The input may already be a clean identifier, a handle hosted by a known
// external identity provider, or free text with an identifier embedded in it.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atdir/atdir/internal/identity"
	"github.com/atdir/atdir/internal/validate"
)

const wellKnownPath = "/.well-known/atproto-did"

// Resolver performs best-effort DID extraction. It is safe for concurrent
// use; the embedded HTTP client is only exercised for external handles.
type Resolver struct {
	client   *http.Client
	suffixes []string
	log      *slog.Logger

	// endpoint builds the resolution URL for an external handle;
	// overridden in tests.
	endpoint func(handle string) string
}

// New creates a Resolver that treats handles carrying one of the given
// suffixes as externally hosted and resolves them over HTTP with the given
// timeout. There are no retries; a failed fetch fails the resolution.
func New(timeout time.Duration, suffixes []string, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		suffixes: suffixes,
		log:      logger,
		endpoint: func(handle string) string {
			return "https://" + handle + wellKnownPath
		},
	}
}

// Resolve returns the did:plc identifier carried by input, in canonical
// lowercase form. Strategies, in order: the input is already a clean
// identifier; the input is an external handle whose own well-known endpoint
// is fetched; the input is free text scanned for an embedded identifier.
// Any failure is reported as [identity.ErrInvalidDID].
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", identity.ErrEmptyData
	}

	if validate.PLC(input) {
		return strings.ToLower(input), nil
	}

	if handle, ok := r.externalHandle(input); ok {
		did, err := r.fetchWellKnown(ctx, handle)
		if err != nil {
			r.log.Debug("remote did resolution failed", "handle", handle, "err", err)
			return "", fmt.Errorf("resolve %q: %w", handle, identity.ErrInvalidDID)
		}
		return did, nil
	}

	if did, ok := validate.ExtractPLC(input); ok {
		return did, nil
	}
	return "", identity.ErrInvalidDID
}

// externalHandle reports whether input is a well-formed handle belonging to
// a configured external identity host.
func (r *Resolver) externalHandle(input string) (string, bool) {
	handle := strings.ToLower(strings.TrimSpace(input))
	handle = strings.TrimPrefix(handle, "@")
	if !validate.Handle(handle) {
		return "", false
	}
	for _, suffix := range r.suffixes {
		if strings.HasSuffix(handle, suffix) {
			return handle, true
		}
	}
	return "", false
}

// fetchWellKnown performs the synchronous GET against the handle's own
// resolution endpoint. Only a 200 whose body is exactly the fixed did:plc
// length is accepted; the candidate is still re-validated before use.
func (r *Resolver) fetchWellKnown(ctx context.Context, handle string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(handle), nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, validate.PLCLength+1))
	if err != nil {
		return "", err
	}
	if len(body) != validate.PLCLength {
		return "", fmt.Errorf("unexpected response length %d", len(body))
	}
	did := strings.ToLower(string(body))
	if !validate.PLC(did) {
		return "", fmt.Errorf("response is not a plc did")
	}
	return did, nil
}
