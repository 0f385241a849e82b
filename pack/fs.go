package pack

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

// Manifest describes a filesystem pack. Layout on disk:
//
//	pack_dir/
//	  manifest.json
//	  Book/
//	    chapter_NN.tsv
//
// TSV rows are "verse_id<TAB>text" in document order.
type Manifest struct {
	PackID       string   `json:"pack_id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	License      string   `json:"license"`
	Siglum       string   `json:"siglum"`
	WitnessType  string   `json:"witness_type"`
	CenturyRange []int    `json:"century_range"`
	Coverage     []string `json:"coverage"`
}

// FSPack is a Source backed by a pack directory.
type FSPack struct {
	dir      string
	manifest Manifest
	century  *witness.CenturyRange
}

// LoadPack opens a pack directory and validates its manifest. A
// manifest without a pack_id cannot attribute its records and is a
// provenance error.
func LoadPack(dir string) (*FSPack, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest in %s", dir)
	}

	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, errors.Wrapf(err, "parse manifest in %s", dir)
	}

	if manifest.PackID == "" {
		return nil, errors.NewProvenanceError("pack at %s has no pack_id", dir)
	}
	if manifest.Siglum == "" {
		return nil, errors.NewProvenanceError("pack %s has no siglum", manifest.PackID)
	}

	p := &FSPack{dir: dir, manifest: manifest}
	if len(manifest.CenturyRange) == 2 {
		p.century = &witness.CenturyRange{
			Earliest: manifest.CenturyRange[0],
			Latest:   manifest.CenturyRange[1],
		}
	}
	return p, nil
}

// ID returns the pack identifier.
func (p *FSPack) ID() string {
	return p.manifest.PackID
}

// Manifest returns the parsed manifest.
func (p *FSPack) Manifest() Manifest {
	return p.manifest
}

// Records reads one chapter's TSV file. A missing file means the pack
// does not cover the chapter and yields no records.
func (p *FSPack) Records(ctx context.Context, book string, chapter int) ([]Record, error) {
	path := filepath.Join(p.dir, book, fmt.Sprintf("chapter_%02d.tsv", chapter))
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open chapter file for %s %d", book, chapter)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := scanner.Text()
		if strings.TrimSpace(row) == "" || strings.HasPrefix(row, "#") {
			continue
		}
		verseID, text, ok := strings.Cut(row, "\t")
		if !ok {
			return nil, errors.NewInputError("%s:%d: expected verse_id<TAB>text", path, line)
		}
		records = append(records, Record{
			VerseID: strings.TrimSpace(verseID),
			Text:    strings.TrimSpace(text),
			Witness: witness.Metadata{
				Siglum:    p.manifest.Siglum,
				TypeLabel: p.manifest.WitnessType,
				Century:   p.century,
			},
			PackID: p.manifest.PackID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read chapter file for %s %d", book, chapter)
	}
	return records, nil
}

// Dir opens packs by identifier from a root directory laid out as
// root/<pack_id>/manifest.json.
type Dir struct {
	root string
}

// NewDir creates a pack directory resolver.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Open loads the pack with the given identifier. Unknown identifiers
// are input errors: the caller named a pack that is not installed.
func (d *Dir) Open(packID string) (*FSPack, error) {
	dir := filepath.Join(d.root, packID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError("pack %q is not installed under %s", packID, d.root)
		}
		return nil, errors.Wrapf(err, "stat pack dir %s", dir)
	}
	p, err := LoadPack(dir)
	if err != nil {
		return nil, err
	}
	if p.ID() != packID {
		return nil, errors.NewProvenanceError("pack at %s declares pack_id %q, expected %q", dir, p.ID(), packID)
	}
	return p, nil
}

// FSSpine is a Spine backed by the same chapter-TSV layout packs use.
type FSSpine struct {
	order []string
	texts map[string]string
}

// LoadSpine reads every chapter TSV under dir into memory, preserving
// document order.
func LoadSpine(dir string) (*FSSpine, error) {
	spine := &FSSpine{texts: make(map[string]string)}

	books, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read spine dir %s", dir)
	}
	for _, book := range books {
		if !book.IsDir() {
			continue
		}
		bookDir := filepath.Join(dir, book.Name())
		chapters, err := os.ReadDir(bookDir)
		if err != nil {
			return nil, errors.Wrapf(err, "read spine book dir %s", bookDir)
		}
		for _, chapter := range chapters {
			if chapter.IsDir() || !strings.HasSuffix(chapter.Name(), ".tsv") {
				continue
			}
			if err := spine.loadChapterFile(filepath.Join(bookDir, chapter.Name())); err != nil {
				return nil, err
			}
		}
	}
	return spine, nil
}

func (s *FSSpine) loadChapterFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open spine chapter %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		row := scanner.Text()
		if strings.TrimSpace(row) == "" || strings.HasPrefix(row, "#") {
			continue
		}
		verseID, text, ok := strings.Cut(row, "\t")
		if !ok {
			return errors.NewInputError("%s:%d: expected verse_id<TAB>text", path, line)
		}
		verseID = strings.TrimSpace(verseID)
		if _, seen := s.texts[verseID]; !seen {
			s.order = append(s.order, verseID)
		}
		s.texts[verseID] = strings.TrimSpace(text)
	}
	return scanner.Err()
}

// VerseText returns the spine text for a verse.
func (s *FSSpine) VerseText(verseID string) (string, bool) {
	text, ok := s.texts[verseID]
	return text, ok
}

// VersesInScope returns spine verse IDs inside the scope in document
// order.
func (s *FSSpine) VersesInScope(scope ref.Scope) []string {
	var out []string
	for _, verseID := range s.order {
		if scope.Contains(verseID) {
			out = append(out, verseID)
		}
	}
	return out
}

// MemSpine is an in-memory Spine, mainly for tests and embedding.
type MemSpine struct {
	order []string
	texts map[string]string
}

// NewMemSpine builds a spine from ordered (verseID, text) pairs.
func NewMemSpine(verses [][2]string) *MemSpine {
	spine := &MemSpine{texts: make(map[string]string, len(verses))}
	for _, v := range verses {
		if _, seen := spine.texts[v[0]]; !seen {
			spine.order = append(spine.order, v[0])
		}
		spine.texts[v[0]] = v[1]
	}
	return spine
}

// VerseText returns the spine text for a verse.
func (s *MemSpine) VerseText(verseID string) (string, bool) {
	text, ok := s.texts[verseID]
	return text, ok
}

// VersesInScope returns verse IDs inside the scope in insertion order.
func (s *MemSpine) VersesInScope(scope ref.Scope) []string {
	var out []string
	for _, verseID := range s.order {
		if scope.Contains(verseID) {
			out = append(out, verseID)
		}
	}
	return out
}
