package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

func writePack(t *testing.T, root, packID, siglum string, manifestExtra map[string]any) string {
	t.Helper()
	dir := filepath.Join(root, packID)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "John"), 0o755))

	manifest := `{
  "pack_id": "` + packID + `",
  "name": "Test Pack",
  "version": "1.0.0",
  "license": "CC0",
  "siglum": "` + siglum + `",
  "witness_type": "edition",
  "century_range": [19, 19],
  "coverage": ["John"]
}`
	if manifestExtra != nil {
		// Currently only used to blank out fields
		if v, ok := manifestExtra["manifest"]; ok {
			manifest = v.(string)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644))

	tsv := "John.1.1\tἘν ἀρχῇ ἦν ὁ λόγος\nJohn.1.18\tμονογενὴς υἱός\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "John", "chapter_01.tsv"), []byte(tsv), 0o644))
	return dir
}

func TestLoadPack(t *testing.T) {
	root := t.TempDir()
	dir := writePack(t, root, "wh-1881", "WH", nil)

	p, err := LoadPack(dir)
	require.NoError(t, err)
	assert.Equal(t, "wh-1881", p.ID())
	assert.Equal(t, "WH", p.Manifest().Siglum)

	records, err := p.Records(context.Background(), "John", 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "John.1.1", records[0].VerseID)
	assert.Equal(t, "μονογενὴς υἱός", records[1].Text)
	assert.Equal(t, "wh-1881", records[0].PackID)
	assert.Equal(t, "WH", records[0].Witness.Siglum)
	assert.Equal(t, witness.Edition, witness.ResolveType(records[0].Witness.TypeLabel))
	require.NotNil(t, records[0].Witness.Century)
	assert.Equal(t, 19, records[0].Witness.Century.Earliest)
}

func TestLoadPackWithoutPackIDIsProvenanceError(t *testing.T) {
	root := t.TempDir()
	dir := writePack(t, root, "anon", "X", map[string]any{
		"manifest": `{"name": "No ID", "siglum": "X", "license": "CC0"}`,
	})

	_, err := LoadPack(dir)
	require.Error(t, err)
	assert.True(t, errors.IsProvenanceError(err))
}

func TestPackRecordsUncoveredChapter(t *testing.T) {
	root := t.TempDir()
	dir := writePack(t, root, "wh-1881", "WH", nil)

	p, err := LoadPack(dir)
	require.NoError(t, err)

	records, err := p.Records(context.Background(), "John", 7)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = p.Records(context.Background(), "Mark", 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDirOpen(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "wh-1881", "WH", nil)

	d := NewDir(root)
	p, err := d.Open("wh-1881")
	require.NoError(t, err)
	assert.Equal(t, "wh-1881", p.ID())

	_, err = d.Open("no-such-pack")
	require.Error(t, err)
	assert.True(t, errors.IsInputError(err))
}

func TestFSSpine(t *testing.T) {
	root := t.TempDir()
	dir := writePack(t, root, "spine", "SBL", nil)

	spine, err := LoadSpine(dir)
	require.NoError(t, err)

	text, ok := spine.VerseText("John.1.18")
	require.True(t, ok)
	assert.Equal(t, "μονογενὴς υἱός", text)

	_, ok = spine.VerseText("John.3.16")
	assert.False(t, ok)

	scope, err := ref.ParseScope("John.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"John.1.1", "John.1.18"}, spine.VersesInScope(scope))

	scope, err = ref.ParseScope("Mark")
	require.NoError(t, err)
	assert.Empty(t, spine.VersesInScope(scope))
}

func TestMemSpine(t *testing.T) {
	spine := NewMemSpine([][2]string{
		{"John.1.1", "Ἐν ἀρχῇ ἦν ὁ λόγος"},
		{"John.1.18", "μονογενὴς θεός"},
	})

	text, ok := spine.VerseText("John.1.1")
	require.True(t, ok)
	assert.NotEmpty(t, text)

	scope, err := ref.ParseScope("John")
	require.NoError(t, err)
	assert.Len(t, spine.VersesInScope(scope), 2)
}
