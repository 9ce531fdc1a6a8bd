package localdb

import (
	"path/filepath"
	"testing"

	"github.com/ichi0g0y/bits-wheel/internal/spin"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if DBClient != nil {
		_ = CloseDB()
	}

	dbPath := filepath.Join(t.TempDir(), "bits-wheel.db")
	if _, err := SetupDB(dbPath); err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseDB()
	})
}

func TestDonorTotalsRoundTrip(t *testing.T) {
	setupTestDB(t)

	initial, err := GetDonorTotals()
	if err != nil {
		t.Fatalf("GetDonorTotals failed: %v", err)
	}
	if len(initial) != 0 {
		t.Fatalf("unexpected initial totals: got=%v", initial)
	}

	if err := SaveDonorTotals(map[string]int{"Ada": 250, "Bob": 100}); err != nil {
		t.Fatalf("SaveDonorTotals failed: %v", err)
	}
	if err := SaveDonorTotals(map[string]int{"Ada": 350}); err != nil {
		t.Fatalf("SaveDonorTotals update failed: %v", err)
	}

	got, err := GetDonorTotals()
	if err != nil {
		t.Fatalf("GetDonorTotals failed: %v", err)
	}
	if got["Ada"] != 350 {
		t.Fatalf("unexpected Ada total: got=%d want=350", got["Ada"])
	}
	if got["Bob"] != 100 {
		t.Fatalf("unexpected Bob total: got=%d want=100", got["Bob"])
	}
}

func TestDonorTotalsNeverDecrease(t *testing.T) {
	setupTestDB(t)

	if err := SaveDonorTotals(map[string]int{"Ada": 500}); err != nil {
		t.Fatalf("SaveDonorTotals failed: %v", err)
	}
	if err := SaveDonorTotals(map[string]int{"Ada": 100}); err != nil {
		t.Fatalf("SaveDonorTotals failed: %v", err)
	}

	got, _ := GetDonorTotals()
	if got["Ada"] != 500 {
		t.Fatalf("total decreased: got=%d want=500", got["Ada"])
	}
}

func TestSpinQueueReplace(t *testing.T) {
	setupTestDB(t)

	queue := []spin.Request{
		{Donor: "Ada", Bits: 250, Spins: 2, Message: "gl"},
		{Donor: "Ada", Bits: 250, Spins: 2, Message: "gl"},
		{Donor: "Bob", Bits: 100, Spins: 1},
	}
	if err := ReplaceSpinQueue(queue); err != nil {
		t.Fatalf("ReplaceSpinQueue failed: %v", err)
	}

	got, err := GetSpinQueue()
	if err != nil {
		t.Fatalf("GetSpinQueue failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected queue length: got=%d want=3", len(got))
	}
	if got[0] != queue[0] || got[2] != queue[2] {
		t.Fatalf("unexpected queue order: got=%+v", got)
	}

	if err := ReplaceSpinQueue(queue[2:]); err != nil {
		t.Fatalf("ReplaceSpinQueue shrink failed: %v", err)
	}
	got, _ = GetSpinQueue()
	if len(got) != 1 || got[0].Donor != "Bob" {
		t.Fatalf("unexpected queue after shrink: got=%+v", got)
	}

	if err := ReplaceSpinQueue(nil); err != nil {
		t.Fatalf("ReplaceSpinQueue clear failed: %v", err)
	}
	got, _ = GetSpinQueue()
	if len(got) != 0 {
		t.Fatalf("queue not cleared: got=%+v", got)
	}
}

func TestStoreWithoutDB(t *testing.T) {
	if DBClient != nil {
		_ = CloseDB()
	}

	var s Store
	if _, err := s.LoadDonorTotals(); err == nil {
		t.Fatalf("expected error without database")
	}
	if err := s.SaveQueue(nil); err == nil {
		t.Fatalf("expected error without database")
	}
}

func TestSetupDBReopensPersistedState(t *testing.T) {
	if DBClient != nil {
		_ = CloseDB()
	}
	dbPath := filepath.Join(t.TempDir(), "bits-wheel.db")

	if _, err := SetupDB(dbPath); err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	var s Store
	if err := s.SaveDonorTotals(map[string]int{"Ada": 100}); err != nil {
		t.Fatalf("SaveDonorTotals failed: %v", err)
	}
	if err := s.SaveQueue([]spin.Request{{Donor: "Ada", Bits: 100, Spins: 1}}); err != nil {
		t.Fatalf("SaveQueue failed: %v", err)
	}
	_ = CloseDB()

	if _, err := SetupDB(dbPath); err != nil {
		t.Fatalf("SetupDB reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = CloseDB() })

	totals, _ := s.LoadDonorTotals()
	queue, _ := s.LoadQueue()
	if totals["Ada"] != 100 || len(queue) != 1 {
		t.Fatalf("state not persisted: totals=%v queue=%v", totals, queue)
	}
}
