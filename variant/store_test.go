package variant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritext/apparatus/classify"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/internal/testutil"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.CreateMigratedTestDB(t), nil)
}

var substitution = classify.Result{
	Classification: classify.Substitution,
	Significance:   classify.Significant,
	ReasonCode:     "substitution",
	ReasonSummary:  "different wording at the same position",
}

func createUnit(t *testing.T, store *Store, verseID string, res classify.Result) (unitID, spineID int64) {
	t.Helper()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	unitID, spineID, err = tx.CreateUnit(verseID, 0, "spine text", "spine text", res)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return unitID, spineID
}

func TestCreateUnit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	unitID, spineID := createUnit(t, store, "John.1.18", substitution)
	assert.Positive(t, unitID)
	assert.Positive(t, spineID)

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, "John.1.18", unit.VerseID)
	assert.Equal(t, classify.Significant, unit.Significance)
	require.Len(t, unit.Readings, 1)
	assert.True(t, unit.Readings[0].IsSpine)
	assert.Equal(t, 0, unit.Readings[0].Index)
}

func TestCreateUnitDuplicateLocationIsConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createUnit(t, store, "John.1.18", substitution)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, _, err = tx.CreateUnit("John.1.18", 0, "spine text", "spine text", substitution)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestCreateUnitRejectsEvaluativeSummary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	bad := substitution
	bad.ReasonSummary = "the spine is the preferred reading"
	_, _, err = tx.CreateUnit("John.1.18", 0, "spine", "spine", bad)
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityError(err))
}

func TestAddReadingEnforcesCanonicalKeyUniqueness(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	unitID, _ := createUnit(t, store, "John.1.18", substitution)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.AddReading(unitID, 1, "μονογενὴς υἱός", "μονογενης υιος")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// Same canonical key again must fail the pre-check
	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.AddReading(unitID, 2, "ΜΟΝΟΓΕΝΗΣ ΥΙΟΣ", "μονογενης υιος")
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityError(err))

	// Spine's key is also protected
	_, err = tx.AddReading(unitID, 3, "spine text", "spine text")
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityError(err))
}

func TestAddSupportIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	unitID, _ := createUnit(t, store, "John.1.18", substitution)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	readingID, err := tx.AddReading(unitID, 1, "μονογενὴς υἱός", "μονογενης υιος")
	require.NoError(t, err)

	wh := witness.Support{Siglum: "WH", Type: witness.Edition, PackID: "wh-1881",
		Century: &witness.CenturyRange{Earliest: 19, Latest: 19}}

	inserted, err := tx.AddSupportIfAbsent(readingID, wh)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same witness, same pack: deduplicated, no error
	inserted, err = tx.AddSupportIfAbsent(readingID, wh)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same witness through a different pack stays distinct
	whMirror := wh
	whMirror.PackID = "wh-mirror"
	inserted, err = tx.AddSupportIfAbsent(readingID, whMirror)
	require.NoError(t, err)
	assert.True(t, inserted)

	require.NoError(t, tx.Commit())

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	reading := unit.Reading(1)
	require.NotNil(t, reading)
	require.Len(t, reading.Supports, 2)
	assert.Equal(t, "wh-1881", reading.Supports[0].PackID)
	assert.Equal(t, "wh-mirror", reading.Supports[1].PackID)
	require.NotNil(t, reading.Supports[0].Century)
	assert.Equal(t, 19, reading.Supports[0].Century.Earliest)
}

func TestBumpVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	unitID, _ := createUnit(t, store, "John.1.18", substitution)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.BumpVersion(unitID, 0))
	require.NoError(t, tx.Commit())

	// Stale version: another writer got there first
	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	err = tx.BumpVersion(unitID, 0)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestEscalateSignificance(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	minor := classify.Result{
		Classification: classify.WordOrder,
		Significance:   classify.Minor,
		ReasonCode:     "word_order",
		ReasonSummary:  "identical words in a different order",
	}
	unitID, _ := createUnit(t, store, "John.1.18", minor)

	major := classify.Result{
		Classification: classify.Substitution,
		Significance:   classify.Major,
		ReasonCode:     "theological_term",
		ReasonSummary:  "presence of a theologically significant term differs between readings",
	}

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EscalateSignificance(unitID, classify.Minor, major))
	require.NoError(t, tx.Commit())

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	assert.Equal(t, classify.Major, unit.Significance)
	assert.Equal(t, "theological_term", unit.ReasonCode)

	// Lower-ranked results never downgrade
	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EscalateSignificance(unitID, classify.Major, minor))
	require.NoError(t, tx.Commit())

	unit, err = store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	assert.Equal(t, classify.Major, unit.Significance)
}

func TestGetUnitsForScope(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, verseID := range []string{"John.1.18", "John.1.3", "John.2.1", "John.10.1"} {
		createUnit(t, store, verseID, substitution)
	}

	scope, err := ref.ParseScope("John.1")
	require.NoError(t, err)
	units, err := store.GetUnitsForScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "John.1.3", units[0].VerseID)
	assert.Equal(t, "John.1.18", units[1].VerseID, "ordering is numeric, not lexicographic")

	scope, err = ref.ParseScope("John")
	require.NoError(t, err)
	units, err = store.GetUnitsForScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, units, 4)
	assert.Equal(t, "John.10.1", units[3].VerseID)

	scope, err = ref.ParseScope("Mark")
	require.NoError(t, err)
	units, err = store.GetUnitsForScope(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestGetUnitMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	unit, err := store.GetUnit(ctx, "John.3.16", 0)
	require.NoError(t, err)
	assert.Nil(t, unit)

	_, err = store.GetUnitByID(ctx, 424242)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDeleteUnit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createUnit(t, store, "John.1.18", substitution)

	deleted, err := store.DeleteUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	assert.False(t, deleted)
}
