// Package refstore provides read-only access to reference documents used
// for similarity scoring. The store is injected into consumers at
// construction time; there is no process-wide instance.
package refstore

import (
	"context"
	"errors"
)

// ErrReferenceUnavailable marks a reference that could not be fetched or
// decoded. Consumers skip such references rather than failing outright.
var ErrReferenceUnavailable = errors.New("reference document unavailable")

// ReferenceStore resolves reference-document identifiers to plain text.
// Implementations must be safe for concurrent reads.
type ReferenceStore interface {
	GetText(ctx context.Context, id string) (string, error)
}
