package docgen

import (
	"fmt"
	"net/http"
)

// Kind classifies a render failure. Every error the engine returns to a
// caller carries exactly one Kind so transports can map it to a status
// without inspecting message text.
type Kind int

const (
	KindInternal           Kind = iota // unexpected layout/serialization failure
	KindSchemaInvalid                  // payload shape mismatch, bad tagged union
	KindInvalidEncoding                // base64 decode failure
	KindNotAnImage                     // decoded bytes are not a real image
	KindRemoteFetchFailed              // upstream returned non-2xx or network error
	KindRemoteFetchTimeout             // remote fetch hit the hard timeout
	KindHostDisallowed                 // SSRF guard rejected the host
	KindPathNotAllowed                 // local path escaped the asset sandbox
	KindPayloadTooLarge                // image or upload exceeded its byte ceiling
)

func (k Kind) String() string {
	switch k {
	case KindSchemaInvalid:
		return "schema_invalid"
	case KindInvalidEncoding:
		return "invalid_encoding"
	case KindNotAnImage:
		return "not_an_image"
	case KindRemoteFetchFailed:
		return "remote_fetch_failed"
	case KindRemoteFetchTimeout:
		return "remote_fetch_timeout"
	case KindHostDisallowed:
		return "host_disallowed"
	case KindPathNotAllowed:
		return "path_not_allowed"
	case KindPayloadTooLarge:
		return "payload_too_large"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to the status a transport should answer with.
// Internal failures deliberately collapse to 500 so no raw detail leaks.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Error is a classified render failure. Block identifies the offending
// content block (0-based) when one is known, -1 otherwise. Status carries the
// upstream HTTP status for remote fetch failures, 0 otherwise.
type Error struct {
	Kind   Kind
	Block  int
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("docgen: %s", e.Kind)
	if e.Block >= 0 {
		msg = fmt.Sprintf("%s (block %d)", msg, e.Block)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (upstream status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus is a convenience forward to the kind's mapping.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

func internalErr(block int, err error) *Error {
	return &Error{Kind: KindInternal, Block: block, Err: err}
}
