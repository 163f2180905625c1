// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches raw citation and reference candidates for a paper
// from external bibliographic providers. Each provider implements the
// Adapter interface; the aggregator holds a slice of adapters and never
// branches on provider identity.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// Query describes the target paper. Title is always set; DOI, when
// available, takes priority for lookup.
type Query struct {
	Title string
	DOI   string
}

// IsEmpty reports whether the query identifies nothing.
func (q Query) IsEmpty() bool {
	return q.Title == "" && q.DOI == ""
}

// Adapter is the per-provider capability set. Implementations tag every
// returned record with their source name in Provenance and SourceIDs, and
// respect the caller's context deadline. Missing optional fields (DOI,
// venue, year) are absent values on the record, never failures.
//
// FetchCitations and FetchReferences return an empty slice when the
// provider has no handle on the paper or does not support the relation;
// that is a NotFound-shaped result, not an error.
type Adapter interface {
	Name() string

	// ResolvePaper looks up the exact paper for a query and returns this
	// provider's view of it, including the provider's native identifier.
	ResolvePaper(ctx context.Context, q Query) (*types.PaperRecord, error)

	// FetchCitations returns candidate papers citing root.
	FetchCitations(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error)

	// FetchReferences returns candidate papers root cites.
	FetchReferences(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error)
}

// Kind classifies a per-source failure.
type Kind string

const (
	// KindNotFound means the provider has no record of the paper.
	KindNotFound Kind = "not_found"

	// KindUnavailable means a network error, timeout, or 5xx. Transient;
	// retryable by the caller under its own policy.
	KindUnavailable Kind = "unavailable"

	// KindRateLimited means the provider signaled throttling. The caller
	// must back off before retrying; never retried within one pass.
	KindRateLimited Kind = "rate_limited"

	// KindMalformed means the provider returned data the adapter cannot
	// parse. Non-retryable for this call.
	KindMalformed Kind = "malformed_response"
)

// Error is a classified per-source failure.
type Error struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a classified source error.
func Errf(sourceName string, kind Kind, format string, args ...any) *Error {
	return &Error{Source: sourceName, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the failure kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found source failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsRateLimited reports whether err is a rate-limit source failure.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// statusError classifies a non-2xx HTTP status into the failure taxonomy.
func statusError(sourceName string, status int) *Error {
	var kind Kind
	switch {
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindUnavailable
	default:
		kind = KindMalformed
	}
	return Errf(sourceName, kind, "HTTP %d", status)
}

// transportError classifies a failed HTTP round-trip. Context expiry and
// network errors are both transient.
func transportError(sourceName string, err error) *Error {
	return &Error{Source: sourceName, Kind: KindUnavailable, Err: err}
}

// getJSON issues a GET, classifies failures, and decodes a JSON body into v.
func getJSON(ctx context.Context, client *http.Client, sourceName, url, userAgent string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Errf(sourceName, KindMalformed, "creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(sourceName, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return Errf(sourceName, KindMalformed, "parsing response: %w", err)
	}
	return nil
}
