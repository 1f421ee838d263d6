package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by directory lookups when no entity matches.
var ErrNotFound = errors.New("not found")

// UnresolvableStationError reports a station whose base station cannot be
// determined: the station is unknown, lacks geography, or no hub is
// registered for its location. It is always folded into the user-facing
// diagnostics of a GenerationError, never shown raw.
type UnresolvableStationError struct {
	Code   string
	Reason string
}

func (e *UnresolvableStationError) Error() string {
	return fmt.Sprintf("station %s: %s", e.Code, e.Reason)
}

// GenerationError aggregates everything that prevented a market view from
// being generated. Diagnostics are pre-formatted, locale-specific strings
// shown to the operator verbatim; the view fails as a whole, partial tables
// are never returned.
type GenerationError struct {
	Diagnostics []string
}

func (e *GenerationError) Error() string {
	return "market generation failed: " + strings.Join(e.Diagnostics, "; ")
}
