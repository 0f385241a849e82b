package variant

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/veritext/apparatus/classify"
	"github.com/veritext/apparatus/db"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

// Store handles persistence of variant units, readings, and witness
// support. Uniqueness invariants are enforced as hard SQL constraints;
// every mutation also pre-checks so control flow never depends on
// catching constraint violations.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a variant store. logger may be nil.
func NewStore(conn *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: conn, logger: logger}
}

// GetUnit retrieves the unit at (verseID, position) with all readings
// and support. Returns nil without error when no unit exists there.
func (s *Store) GetUnit(ctx context.Context, verseID string, position int) (*Unit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, verse_id, position, classification, significance,
		       reason_code, reason_summary, version
		FROM variant_units
		WHERE verse_id = ? AND position = ?`,
		verseID, position,
	)

	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unit")
	}

	if err := s.loadReadings(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetUnitByID retrieves a unit by row ID. Returns a not-found error
// when absent.
func (s *Store) GetUnitByID(ctx context.Context, id int64) (*Unit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, verse_id, position, classification, significance,
		       reason_code, reason_summary, version
		FROM variant_units
		WHERE id = ?`,
		id,
	)

	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("variant unit %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unit by id")
	}

	if err := s.loadReadings(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetUnitsForScope returns every unit inside the scope, ordered by
// chapter, verse, then position.
func (s *Store) GetUnitsForScope(ctx context.Context, scope ref.Scope) ([]*Unit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, verse_id, position, classification, significance,
		       reason_code, reason_summary, version
		FROM variant_units
		WHERE verse_id LIKE ?`,
		scope.LikePattern(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list units for scope")
	}
	defer rows.Close()

	var units []*Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan unit")
		}
		// LIKE patterns are prefix-based; recheck membership so
		// "John.1.%" does not admit readings the scope excludes.
		if !scope.Contains(unit.VerseID) {
			continue
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating units")
	}

	for _, unit := range units {
		if err := s.loadReadings(ctx, unit); err != nil {
			return nil, err
		}
	}

	sortUnits(units)
	return units, nil
}

// CountUnits counts stored units, optionally filtered by significance.
func (s *Store) CountUnits(ctx context.Context, significance *classify.Significance) (int, error) {
	var (
		count int
		err   error
	)
	if significance != nil {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM variant_units WHERE significance = ?",
			string(*significance),
		).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM variant_units").Scan(&count)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to count units")
	}
	return count, nil
}

// Tx wraps the mutation primitives the aggregation engine composes
// into one atomic change per location.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a mutation transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin unit transaction")
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit unit transaction")
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Wrap(err, "failed to roll back unit transaction")
	}
	return nil
}

// CreateUnit inserts a new unit seeded with its spine reading at
// index 0. The reason summary is validated against the evaluative
// language gate before anything is written. A duplicate location means
// another writer created the unit concurrently: the caller gets a
// conflict error and should retry.
func (t *Tx) CreateUnit(verseID string, position int, spineText, spineKey string, res classify.Result) (unitID, spineReadingID int64, err error) {
	if err := classify.ValidateSummary(res.ReasonSummary); err != nil {
		return 0, 0, err
	}

	result, err := t.tx.Exec(`
		INSERT INTO variant_units (verse_id, position, classification, significance, reason_code, reason_summary)
		VALUES (?, ?, ?, ?, ?, ?)`,
		verseID, position,
		string(res.Classification), string(res.Significance),
		res.ReasonCode, res.ReasonSummary,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, 0, errors.Wrapf(errors.ErrConflict, "unit %s@%d already created by a concurrent build", verseID, position)
		}
		return 0, 0, errors.Wrap(err, "failed to create unit")
	}
	unitID, err = result.LastInsertId()
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to read new unit id")
	}

	spineReadingID, err = t.insertReading(unitID, 0, spineText, spineKey, true)
	if err != nil {
		return 0, 0, err
	}
	return unitID, spineReadingID, nil
}

// AddReading appends a non-spine reading at the given index. The
// canonical key must be new within the unit; a collision surfacing at
// the constraint level is an integrity error, not flow control.
func (t *Tx) AddReading(unitID int64, index int, surfaceText, canonicalKey string) (int64, error) {
	var exists bool
	err := t.tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM readings WHERE variant_unit_id = ? AND canonical_key = ?)",
		unitID, canonicalKey,
	).Scan(&exists)
	if err != nil {
		return 0, errors.Wrap(err, "failed to check canonical key")
	}
	if exists {
		return 0, errors.Wrapf(errors.ErrIntegrity, "canonical key already present in unit %d", unitID)
	}

	return t.insertReading(unitID, index, surfaceText, canonicalKey, false)
}

func (t *Tx) insertReading(unitID int64, index int, surfaceText, canonicalKey string, isSpine bool) (int64, error) {
	result, err := t.tx.Exec(`
		INSERT INTO readings (variant_unit_id, reading_index, surface_text, canonical_key, is_spine)
		VALUES (?, ?, ?, ?, ?)`,
		unitID, index, surfaceText, canonicalKey, isSpine,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, errors.Wrapf(errors.ErrIntegrity, "reading uniqueness violated in unit %d", unitID)
		}
		return 0, errors.Wrap(err, "failed to insert reading")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read new reading id")
	}
	return id, nil
}

// AddSupportIfAbsent records one witness attestation unless the same
// (siglum, pack) pair already supports the reading. The boolean return
// is the engine's only signal for BuildResult accounting; dedup never
// relies on catching a constraint violation.
func (t *Tx) AddSupportIfAbsent(readingID int64, sup witness.Support) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM witness_supports
			WHERE reading_id = ? AND witness_siglum = ? AND source_pack_id = ?
		)`,
		readingID, sup.Siglum, sup.PackID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check witness support")
	}
	if exists {
		return false, nil
	}

	var earliest, latest sql.NullInt64
	if sup.Century != nil {
		earliest = sql.NullInt64{Int64: int64(sup.Century.Earliest), Valid: true}
		latest = sql.NullInt64{Int64: int64(sup.Century.Latest), Valid: true}
	}

	_, err = t.tx.Exec(`
		INSERT INTO witness_supports (reading_id, witness_siglum, witness_type, source_pack_id, century_earliest, century_latest)
		VALUES (?, ?, ?, ?, ?, ?)`,
		readingID, sup.Siglum, string(sup.Type), sup.PackID, earliest, latest,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, errors.Wrapf(errors.ErrIntegrity,
				"support (%s, %s) inserted despite pre-check on reading %d", sup.Siglum, sup.PackID, readingID)
		}
		return false, errors.Wrap(err, "failed to insert witness support")
	}
	return true, nil
}

// EscalateSignificance raises the unit's significance when a newly
// created reading classifies higher than the stored level. An existing
// classification is never re-evaluated on later-arriving support; only
// a genuinely new reading can escalate, and only upward.
func (t *Tx) EscalateSignificance(unitID int64, current classify.Significance, res classify.Result) error {
	if rank(res.Significance) <= rank(current) {
		return nil
	}
	if err := classify.ValidateSummary(res.ReasonSummary); err != nil {
		return err
	}
	_, err := t.tx.Exec(`
		UPDATE variant_units
		SET significance = ?, reason_code = ?, reason_summary = ?
		WHERE id = ?`,
		string(res.Significance), res.ReasonCode, res.ReasonSummary, unitID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to escalate significance")
	}
	return nil
}

// BumpVersion advances the unit's optimistic version. A stale expected
// version means another build modified the unit mid-flight: the caller
// receives a conflict error and must retry or serialize.
func (t *Tx) BumpVersion(unitID, expectedVersion int64) error {
	result, err := t.tx.Exec(`
		UPDATE variant_units
		SET version = version + 1, updated_at = datetime('now')
		WHERE id = ? AND version = ?`,
		unitID, expectedVersion,
	)
	if err != nil {
		return errors.Wrap(err, "failed to bump unit version")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrConflict, "unit %d modified concurrently (expected version %d)", unitID, expectedVersion)
	}
	return nil
}

// DeleteUnit removes a unit and, via cascade, its readings and
// support. Operator reset only; the engine never deletes.
func (s *Store) DeleteUnit(ctx context.Context, verseID string, position int) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM variant_units WHERE verse_id = ? AND position = ?",
		verseID, position,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete unit")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row rowScanner) (*Unit, error) {
	var (
		unit           Unit
		classification string
		significance   string
	)
	err := row.Scan(
		&unit.ID, &unit.VerseID, &unit.Position,
		&classification, &significance,
		&unit.ReasonCode, &unit.ReasonSummary, &unit.Version,
	)
	if err != nil {
		return nil, err
	}
	unit.Classification = classify.ParseClassification(classification)
	unit.Significance = classify.ParseSignificance(significance)
	return &unit, nil
}

func (s *Store) loadReadings(ctx context.Context, unit *Unit) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reading_index, surface_text, canonical_key, is_spine
		FROM readings
		WHERE variant_unit_id = ?
		ORDER BY reading_index`,
		unit.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to load readings")
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Index, &r.SurfaceText, &r.CanonicalKey, &r.IsSpine); err != nil {
			return errors.Wrap(err, "failed to scan reading")
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating readings")
	}

	for i := range readings {
		if err := s.loadSupports(ctx, &readings[i]); err != nil {
			return err
		}
	}

	unit.Readings = readings
	return nil
}

func (s *Store) loadSupports(ctx context.Context, reading *Reading) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT witness_siglum, witness_type, source_pack_id, century_earliest, century_latest
		FROM witness_supports
		WHERE reading_id = ?
		ORDER BY id`,
		reading.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to load witness supports")
	}
	defer rows.Close()

	var supports []witness.Support
	for rows.Next() {
		var (
			sup              witness.Support
			witnessType      string
			earliest, latest sql.NullInt64
		)
		if err := rows.Scan(&sup.Siglum, &witnessType, &sup.PackID, &earliest, &latest); err != nil {
			return errors.Wrap(err, "failed to scan witness support")
		}
		sup.Type = witness.ParseType(witnessType)
		if earliest.Valid && latest.Valid {
			sup.Century = &witness.CenturyRange{
				Earliest: int(earliest.Int64),
				Latest:   int(latest.Int64),
			}
		}
		supports = append(supports, sup)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating witness supports")
	}

	reading.Supports = supports
	return nil
}

func sortUnits(units []*Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		vi, erri := ref.ParseVerse(units[i].VerseID)
		vj, errj := ref.ParseVerse(units[j].VerseID)
		if erri != nil || errj != nil {
			return units[i].VerseID < units[j].VerseID
		}
		if vi.Chapter != vj.Chapter {
			return vi.Chapter < vj.Chapter
		}
		if vi.Verse != vj.Verse {
			return vi.Verse < vj.Verse
		}
		return units[i].Position < units[j].Position
	})
}

func rank(s classify.Significance) int {
	switch s {
	case classify.Minor:
		return 1
	case classify.Significant:
		return 2
	case classify.Major:
		return 3
	default:
		return 0
	}
}
