package wheel

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestNew_StandardLayout(t *testing.T) {
	w, err := New(VariantStandard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	segs := w.Segments()
	if len(segs) != SegmentCount {
		t.Fatalf("unexpected segment count: got=%d want=%d", len(segs), SegmentCount)
	}
	if w.DropCount() != 1 {
		t.Fatalf("unexpected drop count: got=%d want=1", w.DropCount())
	}
	if segs[20].Outcome != Drop {
		t.Fatalf("segment 20 should be DROP, got %s", segs[20].Label)
	}
	if segs[0].Outcome != KeepChar || segs[1].Outcome != KeepShared {
		t.Fatalf("pattern should start Keep Char, Keep Shared")
	}
	if segs[21].Outcome != KeepChar || segs[39].Outcome != KeepChar {
		t.Fatalf("pattern after DROP should restart with Keep Char: 21=%s 39=%s", segs[21].Label, segs[39].Label)
	}
}

func TestNew_StrictLayout(t *testing.T) {
	w, err := New(VariantStrict)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if w.DropCount() != 2 {
		t.Fatalf("unexpected drop count: got=%d want=2", w.DropCount())
	}
	segs := w.Segments()
	if segs[20].Outcome != Drop || segs[39].Outcome != Drop {
		t.Fatalf("strict wheel should drop at 20 and 39")
	}
}

func TestNew_UnknownVariant(t *testing.T) {
	if _, err := New("wobbly"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestSegmentsIsACopy(t *testing.T) {
	w, _ := New(VariantStandard)
	segs := w.Segments()
	segs[0] = Segment{Label: "tampered"}
	if w.Segments()[0].Label == "tampered" {
		t.Fatalf("Segments must not expose internal state")
	}
}

func TestIndexAt_KnownAngles(t *testing.T) {
	w, _ := New(VariantStandard)
	step := w.SegmentAngle()

	// rotation 0: offset from pointer is 3π/2 -> 30
	if got := w.IndexAt(0); got != 30 {
		t.Fatalf("IndexAt(0) = %d, want 30", got)
	}
	// rotating so that segment 20's middle sits under the pointer
	rot := PointerAngle - 20.5*step
	if got := w.SegmentAt(rot); got.Outcome != Drop {
		t.Fatalf("SegmentAt(%f) = %s, want DROP", rot, got.Label)
	}
	// full turns do not change the result
	if w.IndexAt(rot+10*FullTurn) != 20 || w.IndexAt(rot-3*FullTurn) != 20 {
		t.Fatalf("index should be invariant under full turns")
	}
}

func TestIndexAt_AlwaysInRange(t *testing.T) {
	w, _ := New(VariantStandard)
	for _, rot := range []float64{-FullTurn, -1e-15, 0, 1e-15, FullTurn - 1e-15, FullTurn, 1e9} {
		idx := w.IndexAt(rot)
		if idx < 0 || idx >= SegmentCount {
			t.Fatalf("IndexAt(%g) = %d out of range", rot, idx)
		}
	}
}

func TestDropDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const samples = 400000

	for _, v := range []Variant{VariantStandard, VariantStrict} {
		w, _ := New(v)
		drops := 0
		for i := 0; i < samples; i++ {
			if w.SegmentAt(rng.Float64() * FullTurn).Outcome == Drop {
				drops++
			}
		}
		got := float64(drops) / samples
		want := float64(w.DropCount()) / SegmentCount
		if math.Abs(got-want) > 0.003 {
			t.Fatalf("%s: drop frequency %.4f, want ~%.4f", v, got, want)
		}
	}
}

func TestEaseOutCubic(t *testing.T) {
	cases := map[float64]float64{
		-1:  0,
		0:   0,
		0.5: 0.875,
		1:   1,
		2:   1,
	}
	for p, want := range cases {
		if got := EaseOutCubic(p); math.Abs(got-want) > 1e-12 {
			t.Fatalf("EaseOutCubic(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestTotalRotationRange(t *testing.T) {
	if got := TotalRotation(0); got != 5*FullTurn {
		t.Fatalf("TotalRotation(0) = %v, want 5 turns", got)
	}
	if got := TotalRotation(0.5); math.Abs(got-6.5*FullTurn) > 1e-9 {
		t.Fatalf("TotalRotation(0.5) = %v, want 6.5 turns", got)
	}
	if got := TotalRotation(1); got != 8*FullTurn {
		t.Fatalf("TotalRotation(1) = %v, want 8 turns", got)
	}
}

func TestAnimation(t *testing.T) {
	a := Animation{Start: 1, Total: 10, Duration: 5 * time.Second}

	if got := a.RotationAt(0); got != 1 {
		t.Fatalf("RotationAt(0) = %v, want 1", got)
	}
	if got := a.RotationAt(2500 * time.Millisecond); math.Abs(got-(1+10*0.875)) > 1e-9 {
		t.Fatalf("RotationAt(half) = %v", got)
	}
	if got := a.RotationAt(time.Minute); got != a.Final() {
		t.Fatalf("RotationAt past the end = %v, want %v", got, a.Final())
	}
	if a.Done(4999*time.Millisecond) || !a.Done(5*time.Second) {
		t.Fatalf("Done boundary is wrong")
	}
	if !(Animation{Duration: 0}).Done(0) {
		t.Fatalf("zero-length animation should be done immediately")
	}
}
