package overlay

import "sort"

// DonorTotals は寄付者ごとの累計（ラウンド内と通算）
type DonorTotals struct {
	RoundBits int `json:"round_bits"`
	TotalBits int `json:"total_bits"`
}

// LedgerRow is one line of the donor table.
type LedgerRow struct {
	Name string `json:"name"`
	DonorTotals
}

// Ledger tracks per-donor bits. Lifetime totals only grow; round totals
// reset at each round start and never exceed the lifetime total.
type Ledger struct {
	donors map[string]*DonorTotals
}

// NewLedger seeds lifetime totals, e.g. from persisted state.
func NewLedger(totals map[string]int) *Ledger {
	l := &Ledger{donors: make(map[string]*DonorTotals, len(totals))}
	for name, total := range totals {
		if total < 0 {
			total = 0
		}
		l.donors[name] = &DonorTotals{TotalBits: total}
	}
	return l
}

// Add records a donation. Non-positive amounts are ignored.
func (l *Ledger) Add(name string, bits int) {
	if bits <= 0 {
		return
	}
	d, ok := l.donors[name]
	if !ok {
		d = &DonorTotals{}
		l.donors[name] = d
	}
	d.RoundBits += bits
	d.TotalBits += bits
}

// ResetRound zeroes every round total.
func (l *Ledger) ResetRound() {
	for _, d := range l.donors {
		d.RoundBits = 0
	}
}

// Get returns the totals for name.
func (l *Ledger) Get(name string) (DonorTotals, bool) {
	d, ok := l.donors[name]
	if !ok {
		return DonorTotals{}, false
	}
	return *d, true
}

// Totals returns lifetime totals keyed by donor name.
func (l *Ledger) Totals() map[string]int {
	out := make(map[string]int, len(l.donors))
	for name, d := range l.donors {
		out[name] = d.TotalBits
	}
	return out
}

// Rows returns donors with a positive lifetime total, highest round total
// first, then highest lifetime total, then by name.
func (l *Ledger) Rows() []LedgerRow {
	rows := make([]LedgerRow, 0, len(l.donors))
	for name, d := range l.donors {
		if d.TotalBits <= 0 {
			continue
		}
		rows = append(rows, LedgerRow{Name: name, DonorTotals: *d})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RoundBits != rows[j].RoundBits {
			return rows[i].RoundBits > rows[j].RoundBits
		}
		if rows[i].TotalBits != rows[j].TotalBits {
			return rows[i].TotalBits > rows[j].TotalBits
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
