package alarm

import "errors"

// ErrInvalidRequest is returned when a Request violates its invariants.
// Callers match it with errors.Is; the wrapped message names the field.
var ErrInvalidRequest = errors.New("invalid alarm request")
