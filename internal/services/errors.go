package services

import "errors"

// Workflow error taxonomy. Handlers map these onto distinct rejection
// responses so the UI can tell the user what to do next.
var (
	// ErrInvalidFile means the upload is not readable or not a PDF container at all.
	ErrInvalidFile = errors.New("invalid file")

	// ErrUnsignedDocument means the verifier found fewer than two signature
	// markers; the user should re-sign via the external portal and retry.
	ErrUnsignedDocument = errors.New("document carries no recognizable signature")

	// ErrInvalidEmail means the counter-party email failed syntactic validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrIllegalTransition means the requested transition violates the state
	// table, e.g. counter-signing before the owner signed, or any signature
	// transition on an already-signed contract.
	ErrIllegalTransition = errors.New("illegal contract state transition")

	// ErrArtifactMissing means a blob recorded on the contract is absent from
	// storage. This is a data-integrity fault, distinct from "no artifact yet";
	// the resolver never falls through to a stale render in this case.
	ErrArtifactMissing = errors.New("recorded signature artifact missing from storage")

	// ErrStoreUnavailable is a transient record- or blob-store failure; the
	// operation aborts with nothing persisted.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrNotificationDispatch is a non-fatal email failure; it never unwinds an
	// already-committed signature transition.
	ErrNotificationDispatch = errors.New("notification dispatch failed")
)
