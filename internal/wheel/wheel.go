package wheel

import (
	"fmt"
	"math"
)

const (
	SegmentCount = 40
	FullTurn     = 2 * math.Pi
	// PointerAngle is the fixed pointer at the top of the wheel.
	PointerAngle = 3 * math.Pi / 2

	minTurns = 5
	maxTurns = 8
)

// Outcome は1区画の結果種別
type Outcome int

const (
	KeepChar Outcome = iota
	KeepShared
	Drop
)

func (o Outcome) String() string {
	switch o {
	case KeepChar:
		return "Keep Char"
	case KeepShared:
		return "Keep Shared"
	case Drop:
		return "DROP"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// IsTerminal reports whether the outcome ends the round.
func (o Outcome) IsTerminal() bool { return o == Drop }

// Segment はホイールの1区画
type Segment struct {
	Label   string  `json:"label"`
	Color   string  `json:"color"`
	Outcome Outcome `json:"outcome"`
}

var (
	keepChar   = Segment{Label: KeepChar.String(), Color: "#9b59b6", Outcome: KeepChar}
	keepShared = Segment{Label: KeepShared.String(), Color: "#007bff", Outcome: KeepShared}
	drop       = Segment{Label: Drop.String(), Color: "#dc3545", Outcome: Drop}
)

// Variant selects which segment layout a Wheel uses.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantStrict   Variant = "strict"
)

// Wheel is an immutable ordered set of equal-width segments.
type Wheel struct {
	segments []Segment
}

// New returns the wheel for the given variant.
func New(v Variant) (*Wheel, error) {
	var dropAt []int
	switch v {
	case VariantStandard, "":
		dropAt = []int{20}
	case VariantStrict:
		dropAt = []int{20, 39}
	default:
		return nil, fmt.Errorf("unknown wheel variant %q", v)
	}
	return &Wheel{segments: buildSegments(dropAt)}, nil
}

// buildSegments alternates Keep Char / Keep Shared, restarting the pattern
// after each DROP position so the layout matches the overlay artwork.
func buildSegments(dropAt []int) []Segment {
	isDrop := make(map[int]bool, len(dropAt))
	for _, i := range dropAt {
		isDrop[i] = true
	}

	segments := make([]Segment, SegmentCount)
	k := 0
	for i := range segments {
		if isDrop[i] {
			segments[i] = drop
			k = 0
			continue
		}
		if k%2 == 0 {
			segments[i] = keepChar
		} else {
			segments[i] = keepShared
		}
		k++
	}
	return segments
}

// Segments returns a copy of the segment list.
func (w *Wheel) Segments() []Segment {
	out := make([]Segment, len(w.segments))
	copy(out, w.segments)
	return out
}

// SegmentAngle is the arc width of one segment.
func (w *Wheel) SegmentAngle() float64 {
	return FullTurn / float64(len(w.segments))
}

// DropCount returns the number of terminal segments.
func (w *Wheel) DropCount() int {
	n := 0
	for _, s := range w.segments {
		if s.Outcome.IsTerminal() {
			n++
		}
	}
	return n
}

// IndexAt returns the index of the segment under the pointer for a rotation.
func (w *Wheel) IndexAt(rotation float64) int {
	normalized := Normalize(rotation)
	offset := Normalize(PointerAngle - normalized)
	idx := int(math.Floor(offset / w.SegmentAngle()))
	// float rounding can land exactly on FullTurn
	if idx >= len(w.segments) {
		idx = len(w.segments) - 1
	}
	return idx
}

// SegmentAt returns the segment under the pointer for a rotation.
func (w *Wheel) SegmentAt(rotation float64) Segment {
	return w.segments[w.IndexAt(rotation)]
}

// Normalize maps an angle into [0, 2π).
func Normalize(angle float64) float64 {
	a := math.Mod(angle, FullTurn)
	if a < 0 {
		a += FullTurn
	}
	return a
}
