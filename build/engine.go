// Package build implements the aggregation engine: it merges pack
// readings into variant units idempotently, one atomic change per
// text location.
package build

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veritext/apparatus/classify"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/normalize"
	"github.com/veritext/apparatus/pack"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/variant"
	"github.com/veritext/apparatus/witness"
)

// DefaultWorkers bounds the per-pass location fan-out.
const DefaultWorkers = 4

// Engine aggregates pack readings into the variant store.
type Engine struct {
	store   *variant.Store
	spine   pack.Spine
	logger  *zap.SugaredLogger
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of locations processed concurrently.
// Values below 1 fall back to sequential processing.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// New creates an aggregation engine. logger may be nil.
func New(store *variant.Store, spine pack.Spine, logger *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		spine:   spine,
		logger:  logger,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build aggregates the given packs over the scope.
//
// Pack processing order is the caller-supplied order; within a pack,
// document order. Locations are independent and processed in
// parallel; all writes to one location happen inside one transaction.
// A malformed scope aborts before any read or write. Per-location
// failures accumulate in the result instead of aborting the scope.
func (e *Engine) Build(ctx context.Context, scopeExpr string, sources []pack.Source) (*Result, error) {
	scope, err := ref.ParseScope(scopeExpr)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID: uuid.NewString(),
		Scope: scope.String(),
	}

	verses := e.spine.VersesInScope(scope)
	if len(verses) == 0 {
		if e.logger != nil {
			e.logger.Warnw("No spine verses in scope", "scope", scope.String())
		}
		return result, nil
	}

	byVerse, provenanceFailures, err := e.collectRecords(ctx, scope, verses, sources)
	if err != nil {
		return nil, err
	}
	result.Failures = append(result.Failures, provenanceFailures...)

	if e.logger != nil {
		e.logger.Infow("Starting aggregation pass",
			"run_id", result.RunID,
			"scope", scope.String(),
			"verses", len(verses),
			"packs", len(sources),
			"workers", e.workers,
		)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, verseID := range verses {
		records := byVerse[verseID]
		g.Go(func() error {
			delta := e.processLocation(gctx, verseID, 0, records)
			mu.Lock()
			result.merge(delta)
			result.VersesProcessed++
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; per-location problems land in the
	// failure list. Wait only propagates context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Infow("Aggregation pass complete",
			"run_id", result.RunID,
			"units_created", result.UnitsCreated,
			"units_updated", result.UnitsUpdated,
			"supports_added", result.SupportsAdded,
			"agreements", result.Agreements,
			"failures", len(result.Failures),
		)
	}

	return result, nil
}

// collectRecords fetches every source's records for the scope and
// groups them per verse, preserving pack order then document order.
// Records without pack attribution are rejected here, one failure per
// record, without aborting anything else.
func (e *Engine) collectRecords(ctx context.Context, scope ref.Scope, verses []string, sources []pack.Source) (map[string][]pack.Record, []Failure, error) {
	inScope := make(map[string]bool, len(verses))
	chapterSet := make(map[int]bool)
	for _, verseID := range verses {
		inScope[verseID] = true
		v, err := ref.ParseVerse(verseID)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "spine produced malformed verse ID %q", verseID)
		}
		chapterSet[v.Chapter] = true
	}
	chapters := make([]int, 0, len(chapterSet))
	for ch := range chapterSet {
		chapters = append(chapters, ch)
	}
	sort.Ints(chapters)

	byVerse := make(map[string][]pack.Record)
	var failures []Failure

	for _, source := range sources {
		for _, chapter := range chapters {
			records, err := source.Records(ctx, scope.Book, chapter)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "pack %s failed for %s %d", source.ID(), scope.Book, chapter)
			}
			for _, record := range records {
				if !inScope[record.VerseID] {
					continue
				}
				if record.PackID == "" {
					failures = append(failures, Failure{
						VerseID: record.VerseID,
						PackID:  source.ID(),
						Err:     errors.NewProvenanceError("record for %s carries no pack attribution", record.VerseID),
					})
					continue
				}
				byVerse[record.VerseID] = append(byVerse[record.VerseID], record)
			}
		}
	}

	return byVerse, failures, nil
}

// processLocation applies one location's records as a single atomic
// change. Any failure is captured in the delta; it never aborts the
// surrounding pass.
func (e *Engine) processLocation(ctx context.Context, verseID string, position int, records []pack.Record) locationDelta {
	var delta locationDelta

	spineText, ok := e.spine.VerseText(verseID)
	if !ok {
		delta.failures = append(delta.failures, Failure{
			VerseID: verseID,
			Err:     errors.NewInputError("verse %s missing from spine", verseID),
		})
		return delta
	}
	spineKey := normalize.Key(spineText)

	// Partition agreements from differing readings. Agreement with the
	// spine is not an evidence-bearing event; it is only tallied.
	var differing []pack.Record
	for _, record := range records {
		if normalize.Key(record.Text) == spineKey {
			delta.agreements++
			continue
		}
		differing = append(differing, record)
	}
	if len(differing) == 0 {
		return delta
	}

	if err := e.applyLocation(ctx, verseID, position, spineText, spineKey, differing, &delta); err != nil {
		// A failed transaction contributed nothing durable.
		delta.unitCreated = false
		delta.unitUpdated = false
		delta.supportsAdded = 0
		delta.readingsAdded = 0
		delta.failures = append(delta.failures, Failure{VerseID: verseID, Err: err})
	}
	return delta
}

// mergeState carries the in-transaction view of a unit while records
// are applied: readings seen so far (including ones created in this
// same transaction), the next free index, and the running significance.
type mergeState struct {
	unitID       int64
	spineText    string
	nextIndex    int
	significance classify.Significance
	readingIDs   map[string]int64 // canonical key -> reading id
}

func (e *Engine) applyLocation(ctx context.Context, verseID string, position int, spineText, spineKey string, differing []pack.Record, delta *locationDelta) error {
	unit, err := e.store.GetUnit(ctx, verseID, position)
	if err != nil {
		return err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	state := mergeState{
		spineText:  spineText,
		readingIDs: make(map[string]int64),
	}

	if unit == nil {
		res := classify.Classify(spineText, differing[0].Text)
		unitID, spineReadingID, err := tx.CreateUnit(verseID, position, spineText, spineKey, res)
		if err != nil {
			return err
		}
		delta.unitCreated = true
		state.unitID = unitID
		state.significance = res.Significance
		state.readingIDs[spineKey] = spineReadingID
		state.nextIndex = 1

		if err := e.applyRecords(tx, &state, differing, delta); err != nil {
			return err
		}
		return tx.Commit()
	}

	state.unitID = unit.ID
	state.significance = unit.Significance
	state.nextIndex = unit.NextReadingIndex()
	for _, r := range unit.Readings {
		state.readingIDs[r.CanonicalKey] = r.ID
	}

	before := delta.supportsAdded + delta.readingsAdded
	if err := e.applyRecords(tx, &state, differing, delta); err != nil {
		return err
	}

	if delta.supportsAdded+delta.readingsAdded == before {
		// Nothing changed; do not bump the version or count an update.
		return tx.Commit()
	}

	// The optimistic version check serializes overlapping builds on
	// the same unit: a stale version rolls this location back with a
	// conflict error instead of interleaving partial updates.
	if err := tx.BumpVersion(unit.ID, unit.Version); err != nil {
		return err
	}
	delta.unitUpdated = true
	return tx.Commit()
}

// applyRecords merges differing records into the unit inside tx. A
// record whose canonical key matches any reading seen so far (stored
// or created in this transaction) only contributes support; otherwise
// a new reading is created with the next sequential index and
// classified exactly once.
func (e *Engine) applyRecords(tx *variant.Tx, state *mergeState, differing []pack.Record, delta *locationDelta) error {
	for _, record := range differing {
		key := normalize.Key(record.Text)

		readingID, found := state.readingIDs[key]
		if !found {
			res := classify.Classify(state.spineText, record.Text)
			id, err := tx.AddReading(state.unitID, state.nextIndex, record.Text, key)
			if err != nil {
				return err
			}
			state.nextIndex++
			delta.readingsAdded++
			state.readingIDs[key] = id
			readingID = id

			// Classification is a function of the reading pair, never
			// of evidence volume: a new reading may raise the unit's
			// significance, later-arriving support never re-evaluates.
			if err := tx.EscalateSignificance(state.unitID, state.significance, res); err != nil {
				return err
			}
			if rankAbove(res.Significance, state.significance) {
				state.significance = res.Significance
			}
		}

		sup := witness.Resolve(record.Witness, record.PackID)
		inserted, err := tx.AddSupportIfAbsent(readingID, sup)
		if err != nil {
			return err
		}
		if inserted {
			delta.supportsAdded++
		}
	}
	return nil
}

func rankAbove(a, b classify.Significance) bool {
	order := map[classify.Significance]int{
		classify.Minor:       1,
		classify.Significant: 2,
		classify.Major:       3,
	}
	return order[a] > order[b]
}
