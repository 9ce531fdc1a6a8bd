package localdb

import "github.com/ichi0g0y/bits-wheel/internal/spin"

// Store adapts the package functions to the overlay's persistence interface.
type Store struct{}

func (Store) LoadDonorTotals() (map[string]int, error)    { return GetDonorTotals() }
func (Store) SaveDonorTotals(totals map[string]int) error { return SaveDonorTotals(totals) }
func (Store) LoadQueue() ([]spin.Request, error)          { return GetSpinQueue() }
func (Store) SaveQueue(queue []spin.Request) error        { return ReplaceSpinQueue(queue) }
