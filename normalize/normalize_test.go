package normalize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	t.Run("accent insensitive", func(t *testing.T) {
		assert.Equal(t, Key("θεός"), Key("θεος"))
		assert.Equal(t, Key("μονογενὴς θεός"), Key("μονογενης θεος"))
	})

	t.Run("case folded", func(t *testing.T) {
		assert.Equal(t, Key("Λόγος"), Key("λογος"))
		assert.Equal(t, Key("In The Beginning"), Key("in the beginning"))
	})

	t.Run("punctuation removed", func(t *testing.T) {
		assert.Equal(t, Key("και ο λογος"), Key("και, ο λογος·"))
		assert.Equal(t, Key("οὗτος ἦν"), Key("οὗτος ἦν;"))
	})

	t.Run("whitespace collapsed and trimmed", func(t *testing.T) {
		assert.Equal(t, "εν αρχη ην", Key("  ἐν   ἀρχῇ \t ἦν  "))
	})

	t.Run("punctuation between spaces does not leave double spaces", func(t *testing.T) {
		assert.Equal(t, Key("α β"), Key("α , β"))
	})

	t.Run("empty result is a valid omission key", func(t *testing.T) {
		assert.Equal(t, "", Key(""))
		assert.Equal(t, "", Key("  ...  "))
	})

	t.Run("unsupported characters pass through", func(t *testing.T) {
		assert.Equal(t, "草 木", Key("草 木"))
	})
}

func TestKeyIdempotent(t *testing.T) {
	inputs := []string{
		"μονογενὴς θεός",
		"Ἐν ἀρχῇ ἦν ὁ λόγος, καὶ ὁ λόγος ἦν πρὸς τὸν θεόν",
		"  mixed   Case,  and; punctuation!  ",
		"",
		"θεός· θεός; θεός.",
	}
	for _, in := range inputs {
		once := Key(in)
		assert.Equal(t, once, Key(once), "Key must be idempotent for %q", in)
	}
}

// Key is called from parallel aggregation workers, so it must be safe
// for concurrent use. Run with -race.
func TestKeyConcurrent(t *testing.T) {
	inputs := []string{
		"μονογενὴς θεός",
		"Ἐν ἀρχῇ ἦν ὁ λόγος, καὶ ὁ λόγος ἦν πρὸς τὸν θεόν",
		"καὶ θεὸς ἦν ὁ λόγος· οὗτος ἦν ἐν ἀρχῇ πρὸς τὸν θεόν",
		"πάντα δι' αὐτοῦ ἐγένετο, καὶ χωρὶς αὐτοῦ ἐγένετο οὐδὲ ἕν",
	}
	want := make([]string, len(inputs))
	for i, in := range inputs {
		want[i] = Key(in)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for j, in := range inputs {
					assert.Equal(t, want[j], Key(in))
				}
			}
		}()
	}
	wg.Wait()
}
