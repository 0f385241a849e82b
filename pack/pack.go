// Package pack defines the source-pack boundary of the aggregation
// engine and a filesystem implementation of it.
//
// A pack contributes readings for verses, attributed to a witness.
// The engine only depends on the Source interface; pack installation,
// licensing, and download live outside this module.
package pack

import (
	"context"

	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

// Record is one reading contributed by a pack for one verse. Every
// record must carry non-empty pack attribution; the engine rejects
// unattributed records with a provenance error.
type Record struct {
	VerseID string
	Text    string
	Witness witness.Metadata
	PackID  string
}

// Source yields ordered reading records for one chapter of one book.
// Document order within a chapter must be stable across calls.
type Source interface {
	// ID returns the pack identifier used for provenance.
	ID() string
	// Records returns the chapter's records in document order. A book
	// or chapter the pack does not cover yields an empty slice.
	Records(ctx context.Context, book string, chapter int) ([]Record, error)
}

// Spine provides the canonical base text the engine compares against.
type Spine interface {
	// VerseText returns the spine text for a verse, and whether the
	// verse exists in the spine.
	VerseText(verseID string) (string, bool)
	// VersesInScope returns the IDs of spine verses inside the scope,
	// in document order.
	VersesInScope(scope ref.Scope) []string
}
