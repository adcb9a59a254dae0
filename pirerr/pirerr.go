// Package pirerr defines the error kinds surfaced by the PIR core.
//
// Errors are plain sentinel values wrapped with fmt.Errorf and %w, in the
// same style the teacher packages (ring, rlwe) use for constructor errors.
// There are no retries inside the core; every error here is meant to
// propagate to the caller unchanged in kind.
package pirerr

import "errors"

// ErrParameter indicates requested parameters are not in the valid table,
// or that moduli are not NTT-friendly. Returned at construction; fatal for
// the caller.
var ErrParameter = errors.New("pir: parameter error")

// ErrLengthMismatch indicates a serialized blob's length differs from the
// length predicted by the parameters (setup_bytes/query_bytes/answer_bytes).
// Fatal per request.
var ErrLengthMismatch = errors.New("pir: length mismatch")

// ErrNotFound indicates the UUID of a private-read request is unknown to the
// server. The server must not process the query.
var ErrNotFound = errors.New("pir: setup uuid not found")

// ErrNeedSetup indicates a high-level client attempted private_read before
// calling setup.
var ErrNeedSetup = errors.New("pir: setup required before private read")

// ErrDecode indicates a structural error (length overrun, malformed framing)
// while parsing a wire-format value.
var ErrDecode = errors.New("pir: decode error")

// Is reports whether err wraps target, via errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
