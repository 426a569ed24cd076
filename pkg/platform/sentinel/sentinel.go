package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and file-handling layers
// return these (optionally wrapped) so callers can translate them into exit
// codes or HTTP statuses without string matching.
//
// Integrity mismatches are deliberately NOT errors: a digest or chain link
// that fails to match is a reportable verification result, and auditors need
// to keep scanning past one bad file. Only operational facts live here:
// - ErrNotFound: a file or record the operation requires does not exist
// - ErrMalformed: content exists but cannot be parsed (JSON, ledger line)
// - ErrUnsupported: a configuration value names something we cannot serve
// - ErrUnavailable: an external collaborator cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrMalformed   = errors.New("malformed")
	ErrUnsupported = errors.New("unsupported")
	ErrUnavailable = errors.New("unavailable")
)
