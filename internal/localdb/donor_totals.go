package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// SetupDonorTotalsTable creates the donor_totals table
func SetupDonorTotalsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS donor_totals (
		name TEXT PRIMARY KEY,
		total_bits INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create donor_totals table", zap.Error(err))
		return fmt.Errorf("failed to create donor_totals table: %w", err)
	}
	return nil
}

// GetDonorTotals returns every donor's lifetime bits.
func GetDonorTotals() (map[string]int, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`SELECT name, total_bits FROM donor_totals`)
	if err != nil {
		return nil, fmt.Errorf("failed to query donor totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var name string
		var total int
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("failed to scan donor total: %w", err)
		}
		totals[name] = total
	}
	return totals, rows.Err()
}

// SaveDonorTotals upserts every entry. A stored total never goes down.
func SaveDonorTotals(totals map[string]int) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO donor_totals (name, total_bits, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			total_bits = MAX(donor_totals.total_bits, excluded.total_bits),
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare donor upsert: %w", err)
	}
	defer stmt.Close()

	for name, total := range totals {
		if _, err := stmt.Exec(name, total); err != nil {
			return fmt.Errorf("failed to save donor %q: %w", name, err)
		}
	}
	return tx.Commit()
}
