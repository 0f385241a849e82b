package build

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritext/apparatus/classify"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/internal/testutil"
	"github.com/veritext/apparatus/normalize"
	"github.com/veritext/apparatus/pack"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/variant"
	"github.com/veritext/apparatus/witness"
)

// memSource is an in-memory pack.Source keyed by chapter.
type memSource struct {
	id      string
	records map[int][]pack.Record
}

func (s *memSource) ID() string { return s.id }

func (s *memSource) Records(_ context.Context, _ string, chapter int) ([]pack.Record, error) {
	return s.records[chapter], nil
}

func sourceFor(packID, siglum, typeLabel string, verses map[string]string) *memSource {
	src := &memSource{id: packID, records: make(map[int][]pack.Record)}
	for verseID, text := range verses {
		v, err := ref.ParseVerse(verseID)
		if err != nil {
			panic(err)
		}
		src.records[v.Chapter] = append(src.records[v.Chapter], pack.Record{
			VerseID: verseID,
			Text:    text,
			Witness: witness.Metadata{Siglum: siglum, TypeLabel: typeLabel},
			PackID:  packID,
		})
	}
	return src
}

func johnSpine() pack.Spine {
	return pack.NewMemSpine([][2]string{
		{"John.1.1", "εν αρχη ην ο λογος"},
		{"John.1.18", "μονογενης θεος"},
	})
}

func newTestEngine(t *testing.T, spine pack.Spine) (*Engine, *variant.Store) {
	t.Helper()
	store := variant.NewStore(testutil.CreateMigratedTestDB(t), nil)
	return New(store, spine, nil), store
}

func TestBuildAggregatesDifferingReadings(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	// WH agrees with the spine up to accents; Byz substitutes a
	// theological term at John 1:18.
	wh := sourceFor("wh-1881", "WH", "westcott-hort", map[string]string{
		"John.1.1":  "Ἐν ἀρχῇ ἦν ὁ λόγος",
		"John.1.18": "μονογενὴς θεός",
	})
	byz := sourceFor("byz-2005", "Byz", "byzantine", map[string]string{
		"John.1.1":  "εν αρχη ην ο λογος",
		"John.1.18": "μονογενὴς υἱός",
	})

	result, err := engine.Build(ctx, "John 1", []pack.Source{wh, byz})
	require.NoError(t, err)
	require.Empty(t, result.Failures)

	assert.Equal(t, 1, result.UnitsCreated)
	assert.Equal(t, 0, result.UnitsUpdated)
	assert.Equal(t, 1, result.ReadingsAdded)
	assert.Equal(t, 1, result.SupportsAdded)
	assert.Equal(t, 3, result.Agreements)
	assert.Equal(t, 2, result.VersesProcessed)
	assert.NotEmpty(t, result.RunID)

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, classify.Substitution, unit.Classification)
	assert.Equal(t, classify.Major, unit.Significance)
	require.Len(t, unit.Readings, 2)

	spine := unit.Spine()
	require.NotNil(t, spine)
	assert.Equal(t, "μονογενης θεος", spine.SurfaceText)
	assert.Empty(t, spine.Supports)

	alt := unit.Reading(1)
	require.NotNil(t, alt)
	assert.Equal(t, "μονογενὴς υἱός", alt.SurfaceText)
	assert.Equal(t, normalize.Key("μονογενης υιος"), alt.CanonicalKey)
	require.Len(t, alt.Supports, 1)
	assert.Equal(t, "Byz", alt.Supports[0].Siglum)
	assert.Equal(t, "byz-2005", alt.Supports[0].PackID)
	assert.Equal(t, witness.Tradition, alt.Supports[0].Type)

	// Agreement with the spine must leave no unit behind.
	agreed, err := store.GetUnit(ctx, "John.1.1", 0)
	require.NoError(t, err)
	assert.Nil(t, agreed)
}

func TestBuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	byz := sourceFor("byz-2005", "Byz", "byzantine", map[string]string{
		"John.1.18": "μονογενὴς υἱός",
	})

	first, err := engine.Build(ctx, "John 1", []pack.Source{byz})
	require.NoError(t, err)
	require.Equal(t, 1, first.UnitsCreated)

	second, err := engine.Build(ctx, "John 1", []pack.Source{byz})
	require.NoError(t, err)
	assert.Equal(t, 0, second.UnitsCreated)
	assert.Equal(t, 0, second.UnitsUpdated)
	assert.Equal(t, 0, second.ReadingsAdded)
	assert.Equal(t, 0, second.SupportsAdded)
	assert.Empty(t, second.Failures)

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Len(t, unit.Readings, 2)
	// Untouched by the no-op second run.
	assert.Equal(t, int64(0), unit.Version)
}

func TestBuildMergesEquivalentReadingsAcrossPacks(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	// Same alternative wording, different accentuation: one reading,
	// two supports.
	na := sourceFor("na28", "NA28", "nestle-aland", map[string]string{
		"John.1.18": "μονογενὴς υἱός",
	})
	byz := sourceFor("byz-2005", "Byz", "byzantine", map[string]string{
		"John.1.18": "μονογενης υιος",
	})

	result, err := engine.Build(ctx, "John 1:18", []pack.Source{na, byz})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UnitsCreated)
	assert.Equal(t, 1, result.ReadingsAdded)
	assert.Equal(t, 2, result.SupportsAdded)

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	require.Len(t, unit.Readings, 2)

	alt := unit.Reading(1)
	require.NotNil(t, alt)
	// Surface text comes from the first pack that contributed the reading.
	assert.Equal(t, "μονογενὴς υἱός", alt.SurfaceText)
	require.Len(t, alt.Supports, 2)
	assert.Equal(t, "na28", alt.Supports[0].PackID)
	assert.Equal(t, "byz-2005", alt.Supports[1].PackID)
}

func TestBuildRetainsConflictingSupportsForSameSiglum(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	// Two packs claim the same witness for different readings. Both
	// supports stay; the disagreement remains visible in the data.
	packA := sourceFor("pack-a", "P66", "papyrus", map[string]string{
		"John.1.18": "μονογενὴς υἱός",
	})
	packB := sourceFor("pack-b", "P66", "papyrus", map[string]string{
		"John.1.18": "ο μονογενης θεος",
	})

	result, err := engine.Build(ctx, "John 1:18", []pack.Source{packA, packB})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ReadingsAdded)
	assert.Equal(t, 2, result.SupportsAdded)

	unit, err := store.GetUnit(ctx, "John.1.18", 0)
	require.NoError(t, err)
	require.Len(t, unit.Readings, 3)
	for _, index := range []int{1, 2} {
		reading := unit.Reading(index)
		require.NotNil(t, reading)
		require.Len(t, reading.Supports, 1)
		assert.Equal(t, "P66", reading.Supports[0].Siglum)
	}
}

func TestBuildEscalatesSignificanceOnNewReading(t *testing.T) {
	ctx := context.Background()
	spine := pack.NewMemSpine([][2]string{{"John.1.1", "ειπεν αυτω"}})
	engine, store := newTestEngine(t, spine)

	// First pass: a function-word addition, minor.
	minor := sourceFor("pack-a", "A", "uncial", map[string]string{
		"John.1.1": "ειπεν δε αυτω",
	})
	first, err := engine.Build(ctx, "John 1:1", []pack.Source{minor})
	require.NoError(t, err)
	require.Equal(t, 1, first.UnitsCreated)

	unit, err := store.GetUnit(ctx, "John.1.1", 0)
	require.NoError(t, err)
	require.Equal(t, classify.Minor, unit.Significance)

	// Second pass: a theological addition arrives, raising the unit.
	major := sourceFor("pack-b", "B", "uncial", map[string]string{
		"John.1.1": "ειπεν αυτω ο θεος",
	})
	second, err := engine.Build(ctx, "John 1:1", []pack.Source{major})
	require.NoError(t, err)
	assert.Equal(t, 0, second.UnitsCreated)
	assert.Equal(t, 1, second.UnitsUpdated)
	assert.Equal(t, 1, second.ReadingsAdded)

	unit, err = store.GetUnit(ctx, "John.1.1", 0)
	require.NoError(t, err)
	assert.Equal(t, classify.Major, unit.Significance)
	assert.Equal(t, int64(1), unit.Version)
}

// A wide scope actually overlaps the errgroup workers, so this keeps
// the parallel path honest under -race: canonical keys and deltas must
// come out identical to a sequential pass.
func TestBuildParallelOverWideScope(t *testing.T) {
	ctx := context.Background()

	const verses = 120
	entries := make([][2]string, 0, verses)
	texts := make(map[string]string, verses)
	differing := make([]string, 0, verses/2)
	for i := 1; i <= verses; i++ {
		verseID := fmt.Sprintf("John.1.%d", i)
		entries = append(entries, [2]string{verseID, "εν αρχη ην ο λογος"})
		if i%2 == 0 {
			// Agreement up to accentuation.
			texts[verseID] = "Ἐν ἀρχῇ ἦν ὁ λόγος"
		} else {
			texts[verseID] = "Ἐν ἀρχῇ ἦν ὁ θεός"
			differing = append(differing, verseID)
		}
	}
	src := sourceFor("wh-1881", "WH", "westcott-hort", texts)

	store := variant.NewStore(testutil.CreateMigratedTestDB(t), nil)
	engine := New(store, pack.NewMemSpine(entries), nil, WithWorkers(8))

	result, err := engine.Build(ctx, "John 1", []pack.Source{src})
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	assert.Equal(t, verses, result.VersesProcessed)
	assert.Equal(t, verses/2, result.UnitsCreated)
	assert.Equal(t, verses/2, result.Agreements)
	assert.Equal(t, verses/2, result.ReadingsAdded)
	assert.Equal(t, verses/2, result.SupportsAdded)

	wantKey := normalize.Key("εν αρχη ην ο θεος")
	for _, verseID := range differing {
		unit, err := store.GetUnit(ctx, verseID, 0)
		require.NoError(t, err)
		require.NotNil(t, unit, verseID)
		alt := unit.Reading(1)
		require.NotNil(t, alt, verseID)
		assert.Equal(t, wantKey, alt.CanonicalKey, verseID)
		assert.Equal(t, classify.Major, unit.Significance, verseID)
	}

	count, err := store.CountUnits(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, verses/2, count)
}

func TestBuildRejectsUnattributedRecords(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	src := &memSource{
		id: "broken-pack",
		records: map[int][]pack.Record{
			1: {
				{
					VerseID: "John.1.1",
					Text:    "εν αρχη ην ο λογος ουτος",
					Witness: witness.Metadata{Siglum: "X"},
					// No PackID.
				},
				{
					VerseID: "John.1.18",
					Text:    "μονογενὴς υἱός",
					Witness: witness.Metadata{Siglum: "X"},
					PackID:  "broken-pack",
				},
			},
		},
	}

	result, err := engine.Build(ctx, "John 1", []pack.Source{src})
	require.NoError(t, err)

	// The unattributed record is rejected; the attributed one lands.
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "John.1.1", result.Failures[0].VerseID)
	assert.True(t, errors.IsProvenanceError(result.Failures[0].Err))
	assert.Equal(t, 1, result.UnitsCreated)

	unit, err := store.GetUnit(ctx, "John.1.1", 0)
	require.NoError(t, err)
	assert.Nil(t, unit)
}

func TestBuildRejectsMalformedScope(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, johnSpine())

	byz := sourceFor("byz-2005", "Byz", "byzantine", map[string]string{
		"John.1.18": "μονογενὴς υἱός",
	})

	result, err := engine.Build(ctx, "Gospel of Thomas 3", []pack.Source{byz})
	require.Error(t, err)
	assert.True(t, errors.IsInputError(err))
	assert.Nil(t, result)

	// Nothing was written.
	count, err := store.CountUnits(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBuildEmptyScope(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, johnSpine())

	byz := sourceFor("byz-2005", "Byz", "byzantine", map[string]string{
		"John.1.18": "μονογενὴς υἱός",
	})

	result, err := engine.Build(ctx, "John 3", []pack.Source{byz})
	require.NoError(t, err)
	assert.Equal(t, 0, result.VersesProcessed)
	assert.Equal(t, 0, result.UnitsCreated)
}
