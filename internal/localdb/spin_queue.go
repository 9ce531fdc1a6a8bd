package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"go.uber.org/zap"
)

// SetupSpinQueueTable creates the spin_queue table
func SetupSpinQueueTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS spin_queue (
		position INTEGER PRIMARY KEY,
		donor TEXT NOT NULL,
		bits INTEGER NOT NULL DEFAULT 0,
		spins INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		logger.Error("Failed to create spin_queue table", zap.Error(err))
		return fmt.Errorf("failed to create spin_queue table: %w", err)
	}
	return nil
}

// GetSpinQueue returns the stored queue in FIFO order.
func GetSpinQueue() ([]spin.Request, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`SELECT donor, bits, spins, message FROM spin_queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query spin queue: %w", err)
	}
	defer rows.Close()

	var queue []spin.Request
	for rows.Next() {
		var r spin.Request
		if err := rows.Scan(&r.Donor, &r.Bits, &r.Spins, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan spin queue entry: %w", err)
		}
		queue = append(queue, r)
	}
	return queue, rows.Err()
}

// ReplaceSpinQueue overwrites the stored queue in one transaction.
func ReplaceSpinQueue(queue []spin.Request) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM spin_queue`); err != nil {
		return fmt.Errorf("failed to clear spin queue: %w", err)
	}
	for i, r := range queue {
		if _, err := tx.Exec(
			`INSERT INTO spin_queue (position, donor, bits, spins, message) VALUES (?, ?, ?, ?, ?)`,
			i, r.Donor, r.Bits, r.Spins, r.Message,
		); err != nil {
			return fmt.Errorf("failed to insert spin queue entry: %w", err)
		}
	}
	return tx.Commit()
}
