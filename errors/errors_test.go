package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelTaxonomy(t *testing.T) {
	t.Run("wrapping preserves sentinel identity", func(t *testing.T) {
		err := Wrap(ErrConflict, "unit John.1.18/0 version mismatch")
		assert.True(t, IsConflictError(err))
		assert.False(t, IsInputError(err))
		assert.False(t, IsIntegrityError(err))
	})

	t.Run("formatted constructors carry the sentinel", func(t *testing.T) {
		err := NewInputError("unparseable scope: %q", "John.x.y")
		require.Error(t, err)
		assert.True(t, IsInputError(err))
		assert.Contains(t, err.Error(), "John.x.y")
	})

	t.Run("provenance and integrity are distinct", func(t *testing.T) {
		prov := NewProvenanceError("record for %s has empty pack_id", "John.1.1")
		integ := NewIntegrityError("duplicate canonical key in unit %d", 7)
		assert.True(t, IsProvenanceError(prov))
		assert.False(t, IsIntegrityError(prov))
		assert.True(t, IsIntegrityError(integ))
		assert.False(t, IsProvenanceError(integ))
	})

	t.Run("double wrap still matches", func(t *testing.T) {
		err := Wrap(Wrap(ErrNotFound, "unit lookup"), "acknowledge")
		assert.True(t, IsNotFoundError(err))
	})
}

func TestStackTraces(t *testing.T) {
	err := NewConflictError("builds overlap on %s", "John.1")
	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go", "errors should carry stack traces")
}
