package docgen

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	if got := KindPayloadTooLarge.HTTPStatus(); got != http.StatusRequestEntityTooLarge {
		t.Errorf("payload_too_large = %d, want 413", got)
	}
	if got := KindInternal.HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("internal = %d, want 500", got)
	}
	for _, k := range []Kind{
		KindSchemaInvalid, KindInvalidEncoding, KindNotAnImage,
		KindRemoteFetchFailed, KindRemoteFetchTimeout,
		KindHostDisallowed, KindPathNotAllowed,
	} {
		if got := k.HTTPStatus(); got != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", k, got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:   KindRemoteFetchFailed,
		Block:  2,
		Status: 502,
		Err:    fmt.Errorf("bad gateway"),
	}
	msg := err.Error()
	for _, want := range []string{"remote_fetch_failed", "block 2", "upstream status 502", "bad gateway"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q is missing %q", msg, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := internalErr(-1, inner)
	if !errors.Is(err, inner) {
		t.Error("wrapped cause lost")
	}
	if err.Block != -1 || err.Kind != KindInternal {
		t.Errorf("unexpected fields: %+v", err)
	}
}
