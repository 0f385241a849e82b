// Package gate implements the per-session acknowledgement gate over
// variant units.
//
// The gate is a one-way state machine per (variant unit, session):
// UNACKNOWLEDGED, then ACKNOWLEDGED. Absence of a row means
// unacknowledged. Aggregation never writes to the acknowledgements
// table, so a unit that gains corroborating support after being
// acknowledged stays acknowledged.
package gate

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/variant"
)

// AckRecord is one durable acknowledgement. AcknowledgedAt uses the
// store's SQLite datetime text form.
type AckRecord struct {
	ID             int64
	UnitID         int64
	SessionID      string
	ReadingIndex   int
	Reason         string
	AcknowledgedAt string
}

// Resolver answers pending-gate queries and records acknowledgements.
type Resolver struct {
	db     *sql.DB
	store  *variant.Store
	logger *zap.SugaredLogger
}

// NewResolver creates a gate resolver over the same database as the
// variant store. logger may be nil.
func NewResolver(conn *sql.DB, store *variant.Store, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{db: conn, store: store, logger: logger}
}

// Pending returns every unit in scope whose significance requires
// acknowledgement and which the session has not acknowledged, in
// document order. Gate granularity is the merged unit: how many packs
// corroborate a reading never re-opens the gate.
func (r *Resolver) Pending(ctx context.Context, scopeExpr, sessionID string) ([]*variant.Unit, error) {
	if sessionID == "" {
		return nil, errors.NewInputError("session ID is required")
	}
	scope, err := ref.ParseScope(scopeExpr)
	if err != nil {
		return nil, err
	}

	units, err := r.store.GetUnitsForScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	acked, err := r.acknowledgedUnitIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var pending []*variant.Unit
	for _, unit := range units {
		if !unit.RequiresAcknowledgement() {
			continue
		}
		if acked[unit.ID] {
			continue
		}
		pending = append(pending, unit)
	}
	return pending, nil
}

// Acknowledge marks a unit acknowledged for a session, choosing a
// reading. Re-acknowledging overwrites reason and timestamp and never
// duplicates the row. A nonexistent unit or reading index fails with
// an input error and writes nothing.
func (r *Resolver) Acknowledge(ctx context.Context, unitRef variant.UnitRef, readingIndex int, sessionID, reason string) (*AckRecord, error) {
	if sessionID == "" {
		return nil, errors.NewInputError("session ID is required")
	}

	unit, err := r.store.GetUnit(ctx, unitRef.VerseID, unitRef.Position)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, errors.NewInputError("no variant unit at %s", unitRef)
	}
	if unit.Reading(readingIndex) == nil {
		return nil, errors.NewInputError("unit %s has no reading with index %d", unitRef, readingIndex)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO acknowledgements (variant_unit_id, session_id, reading_index, reason, acknowledged_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(variant_unit_id, session_id) DO UPDATE SET
			reading_index = excluded.reading_index,
			reason = excluded.reason,
			acknowledged_at = excluded.acknowledged_at`,
		unit.ID, sessionID, readingIndex, reason)
	if err != nil {
		return nil, errors.Wrapf(err, "acknowledging unit %s for session %s", unitRef, sessionID)
	}

	if r.logger != nil {
		r.logger.Infow("Unit acknowledged",
			"unit", unitRef.String(),
			"session_id", sessionID,
			"reading_index", readingIndex,
		)
	}

	return r.Get(ctx, unit.ID, sessionID)
}

// Get returns the acknowledgement for a unit and session, or a
// not-found error when the pair is unacknowledged.
func (r *Resolver) Get(ctx context.Context, unitID int64, sessionID string) (*AckRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, variant_unit_id, session_id, reading_index, reason, acknowledged_at
		FROM acknowledgements
		WHERE variant_unit_id = ? AND session_id = ?`,
		unitID, sessionID)

	var rec AckRecord
	err := row.Scan(&rec.ID, &rec.UnitID, &rec.SessionID, &rec.ReadingIndex, &rec.Reason, &rec.AcknowledgedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("no acknowledgement for unit %d session %s", unitID, sessionID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading acknowledgement for unit %d", unitID)
	}
	return &rec, nil
}

// ListForSession returns all of a session's acknowledgements ordered
// by unit ID.
func (r *Resolver) ListForSession(ctx context.Context, sessionID string) ([]*AckRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, variant_unit_id, session_id, reading_index, reason, acknowledged_at
		FROM acknowledgements
		WHERE session_id = ?
		ORDER BY variant_unit_id`,
		sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing acknowledgements for session %s", sessionID)
	}
	defer rows.Close()

	var records []*AckRecord
	for rows.Next() {
		var rec AckRecord
		if err := rows.Scan(&rec.ID, &rec.UnitID, &rec.SessionID, &rec.ReadingIndex, &rec.Reason, &rec.AcknowledgedAt); err != nil {
			return nil, errors.Wrap(err, "scanning acknowledgement row")
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *Resolver) acknowledgedUnitIDs(ctx context.Context, sessionID string) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant_unit_id FROM acknowledgements WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading acknowledged units for session %s", sessionID)
	}
	defer rows.Close()

	acked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning acknowledged unit ID")
		}
		acked[id] = true
	}
	return acked, rows.Err()
}
