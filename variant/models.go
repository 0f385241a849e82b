// Package variant holds the merged variant-unit data model and its
// durable SQLite store.
package variant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veritext/apparatus/classify"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/witness"
)

// UnitRef identifies a variant unit by its text location.
type UnitRef struct {
	VerseID  string
	Position int
}

func (r UnitRef) String() string {
	return fmt.Sprintf("%s@%d", r.VerseID, r.Position)
}

// ParseUnitRef parses the "Book.Chapter.Verse@position" form produced
// by UnitRef.String. A bare verse ID means position 0.
func ParseUnitRef(s string) (UnitRef, error) {
	versePart := s
	position := 0
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		versePart = s[:at]
		n, err := strconv.Atoi(s[at+1:])
		if err != nil || n < 0 {
			return UnitRef{}, errors.NewInputError("invalid unit position in %q", s)
		}
		position = n
	}
	v, err := ref.ParseVerse(versePart)
	if err != nil {
		return UnitRef{}, err
	}
	return UnitRef{VerseID: v.ID(), Position: position}, nil
}

// Reading is one distinct textual variant within a unit. The canonical
// key is permanent and is the unit-scoped identity used when merging
// newly arriving readings.
type Reading struct {
	ID           int64
	Index        int
	SurfaceText  string
	CanonicalKey string
	IsSpine      bool
	Supports     []witness.Support
}

// Unit is the merged record for one text location. Created on first
// aggregation touching the location and only ever extended afterwards:
// readings are added and existing readings gain support, nothing is
// removed outside an explicit operator reset.
type Unit struct {
	ID             int64
	VerseID        string
	Position       int
	Classification classify.Classification
	Significance   classify.Significance
	ReasonCode     string
	ReasonSummary  string
	Version        int64
	Readings       []Reading
}

// Ref returns the unit's location reference.
func (u *Unit) Ref() UnitRef {
	return UnitRef{VerseID: u.VerseID, Position: u.Position}
}

// Spine returns the spine reading (index 0). Nil only for a corrupted
// unit, which the store's invariants prevent.
func (u *Unit) Spine() *Reading {
	for i := range u.Readings {
		if u.Readings[i].IsSpine {
			return &u.Readings[i]
		}
	}
	return nil
}

// Reading returns the reading at the given index, or nil.
func (u *Unit) Reading(index int) *Reading {
	for i := range u.Readings {
		if u.Readings[i].Index == index {
			return &u.Readings[i]
		}
	}
	return nil
}

// NextReadingIndex returns the index a newly created reading receives.
func (u *Unit) NextReadingIndex() int {
	next := 0
	for _, r := range u.Readings {
		if r.Index >= next {
			next = r.Index + 1
		}
	}
	return next
}

// RequiresAcknowledgement reports whether the unit sits behind the
// acknowledgement gate.
func (u *Unit) RequiresAcknowledgement() bool {
	return u.Significance.RequiresAcknowledgement()
}
