package domain

import "errors"

// Error taxonomy for the validation engine.
//
// ErrInput marks a request whose structure is too incomplete to attempt
// evaluation at all (e.g. no line-items collection, as opposed to an empty
// one). No partial run is produced.
//
// ErrCollaborator marks a failed read from the existing-record provider or
// the catalogue provider. The engine never substitutes a default catalogue
// or assumes "no existing record" in that case, since silently treating
// unavailability as a new invoice would corrupt duplicate detection.
//
// A single rule whose own computation cannot proceed is not an error at
// this level: it is recorded as a FAIL result for that rule so that every
// other rule still gets evaluated.
var (
	ErrInput        = errors.New("invalid validation input")
	ErrCollaborator = errors.New("collaborator unavailable")
)
