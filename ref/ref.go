// Package ref parses scripture references and build scopes.
//
// Canonical verse IDs use "Book.Chapter.Verse" form (e.g. "John.1.18").
// Human-readable input like "Jn 1:18" is accepted and normalized.
package ref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/veritext/apparatus/errors"
)

// NTBooks lists the canonical book names in order.
var NTBooks = []string{
	"Matthew", "Mark", "Luke", "John", "Acts",
	"Romans", "1Corinthians", "2Corinthians", "Galatians", "Ephesians",
	"Philippians", "Colossians", "1Thessalonians", "2Thessalonians",
	"1Timothy", "2Timothy", "Titus", "Philemon", "Hebrews", "James",
	"1Peter", "2Peter", "1John", "2John", "3John", "Jude", "Revelation",
}

// bookAliases maps lowercase abbreviations to canonical book names.
var bookAliases = map[string]string{
	"matthew": "Matthew", "matt": "Matthew", "mat": "Matthew", "mt": "Matthew",
	"mark": "Mark", "mk": "Mark", "mr": "Mark",
	"luke": "Luke", "lk": "Luke", "luk": "Luke",
	"john": "John", "jn": "John", "jhn": "John", "joh": "John",
	"acts": "Acts", "ac": "Acts", "act": "Acts",
	"romans": "Romans", "rom": "Romans", "rm": "Romans", "ro": "Romans",
	"1corinthians": "1Corinthians", "1cor": "1Corinthians", "1co": "1Corinthians",
	"2corinthians": "2Corinthians", "2cor": "2Corinthians", "2co": "2Corinthians",
	"galatians": "Galatians", "gal": "Galatians", "ga": "Galatians",
	"ephesians": "Ephesians", "eph": "Ephesians",
	"philippians": "Philippians", "phil": "Philippians", "php": "Philippians",
	"colossians": "Colossians", "col": "Colossians",
	"1thessalonians": "1Thessalonians", "1thess": "1Thessalonians", "1th": "1Thessalonians",
	"2thessalonians": "2Thessalonians", "2thess": "2Thessalonians", "2th": "2Thessalonians",
	"1timothy": "1Timothy", "1tim": "1Timothy", "1ti": "1Timothy",
	"2timothy": "2Timothy", "2tim": "2Timothy", "2ti": "2Timothy",
	"titus": "Titus", "tit": "Titus",
	"philemon": "Philemon", "phm": "Philemon", "phlm": "Philemon",
	"hebrews": "Hebrews", "heb": "Hebrews",
	"james": "James", "jas": "James", "jm": "James",
	"1peter": "1Peter", "1pet": "1Peter", "1pe": "1Peter",
	"2peter": "2Peter", "2pet": "2Peter", "2pe": "2Peter",
	"1john": "1John", "1jn": "1John", "1jo": "1John",
	"2john": "2John", "2jn": "2John", "2jo": "2John",
	"3john": "3John", "3jn": "3John", "3jo": "3John",
	"jude": "Jude", "jud": "Jude",
	"revelation": "Revelation", "rev": "Revelation", "re": "Revelation",
}

// NormalizeBook resolves a free-form book name or abbreviation to its
// canonical form. Returns an input error for unknown names.
func NormalizeBook(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.TrimSuffix(key, ".")
	if canonical, ok := bookAliases[key]; ok {
		return canonical, nil
	}
	return "", errors.NewInputError("unknown book name: %q", name)
}

// Verse identifies a single verse.
type Verse struct {
	Book    string
	Chapter int
	Verse   int
}

// ID returns the canonical "Book.Chapter.Verse" form.
func (v Verse) ID() string {
	return fmt.Sprintf("%s.%d.%d", v.Book, v.Chapter, v.Verse)
}

// ParseVerse parses a canonical or human-readable single-verse
// reference ("John.1.18", "Jn 1:18").
func ParseVerse(s string) (Verse, error) {
	scope, err := ParseScope(s)
	if err != nil {
		return Verse{}, err
	}
	if scope.Verse == 0 {
		return Verse{}, errors.NewInputError("not a single verse reference: %q", s)
	}
	return Verse{Book: scope.Book, Chapter: scope.Chapter, Verse: scope.Verse}, nil
}

// Scope selects a book, a chapter, or a single verse.
// Chapter == 0 means the whole book; Verse == 0 means the whole chapter.
type Scope struct {
	Book    string
	Chapter int
	Verse   int
}

// String returns the canonical dotted form of the scope.
func (s Scope) String() string {
	switch {
	case s.Verse > 0:
		return fmt.Sprintf("%s.%d.%d", s.Book, s.Chapter, s.Verse)
	case s.Chapter > 0:
		return fmt.Sprintf("%s.%d", s.Book, s.Chapter)
	default:
		return s.Book
	}
}

// Contains reports whether the canonical verse ID falls inside the scope.
func (s Scope) Contains(verseID string) bool {
	v, err := parseCanonicalVerse(verseID)
	if err != nil {
		return false
	}
	if v.Book != s.Book {
		return false
	}
	if s.Chapter > 0 && v.Chapter != s.Chapter {
		return false
	}
	if s.Verse > 0 && v.Verse != s.Verse {
		return false
	}
	return true
}

// LikePattern returns the SQL LIKE pattern matching verse IDs in scope.
func (s Scope) LikePattern() string {
	switch {
	case s.Verse > 0:
		return fmt.Sprintf("%s.%d.%d", s.Book, s.Chapter, s.Verse)
	case s.Chapter > 0:
		return fmt.Sprintf("%s.%d.%%", s.Book, s.Chapter)
	default:
		return fmt.Sprintf("%s.%%", s.Book)
	}
}

// humanRef matches "Book 1:18" and "Book 1" style references.
var humanRef = regexp.MustCompile(`^\s*([1-3]?\s*[A-Za-z]+\.?)\s+(\d+)(?:\s*:\s*(\d+))?\s*$`)

// ParseScope parses a scope string. Accepted forms:
//
//	"John"        whole book
//	"John.1"      whole chapter (also "John 1")
//	"John.1.18"   single verse (also "John 1:18", "Jn 1:18")
//
// Malformed input yields an input error; nothing about the scope is
// guessed.
func ParseScope(s string) (Scope, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Scope{}, errors.NewInputError("empty scope")
	}

	// Human form: "Jn 1:18" / "John 1"
	if m := humanRef.FindStringSubmatch(trimmed); m != nil {
		book, err := NormalizeBook(m[1])
		if err != nil {
			return Scope{}, err
		}
		chapter, err := strconv.Atoi(m[2])
		if err != nil || chapter < 1 {
			return Scope{}, errors.NewInputError("invalid chapter in scope: %q", s)
		}
		scope := Scope{Book: book, Chapter: chapter}
		if m[3] != "" {
			verse, err := strconv.Atoi(m[3])
			if err != nil || verse < 1 {
				return Scope{}, errors.NewInputError("invalid verse in scope: %q", s)
			}
			scope.Verse = verse
		}
		return scope, nil
	}

	// Canonical dotted form
	parts := strings.Split(trimmed, ".")
	if len(parts) > 3 {
		return Scope{}, errors.NewInputError("too many components in scope: %q", s)
	}
	book, err := NormalizeBook(parts[0])
	if err != nil {
		return Scope{}, err
	}
	scope := Scope{Book: book}
	if len(parts) >= 2 {
		chapter, err := strconv.Atoi(parts[1])
		if err != nil || chapter < 1 {
			return Scope{}, errors.NewInputError("invalid chapter in scope: %q", s)
		}
		scope.Chapter = chapter
	}
	if len(parts) == 3 {
		verse, err := strconv.Atoi(parts[2])
		if err != nil || verse < 1 {
			return Scope{}, errors.NewInputError("invalid verse in scope: %q", s)
		}
		scope.Verse = verse
	}
	return scope, nil
}

func parseCanonicalVerse(verseID string) (Verse, error) {
	parts := strings.Split(verseID, ".")
	if len(parts) != 3 {
		return Verse{}, errors.NewInputError("malformed verse ID: %q", verseID)
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil {
		return Verse{}, errors.NewInputError("malformed verse ID: %q", verseID)
	}
	verse, err := strconv.Atoi(parts[2])
	if err != nil {
		return Verse{}, errors.NewInputError("malformed verse ID: %q", verseID)
	}
	return Verse{Book: parts[0], Chapter: chapter, Verse: verse}, nil
}
