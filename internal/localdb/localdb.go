package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var DBClient *sql.DB

// SetupDB はsqliteを開き、オーバーレイ用のテーブルを作成する
func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	if err := SetupDonorTotalsTable(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := SetupSpinQueueTable(db); err != nil {
		db.Close()
		return nil, err
	}

	DBClient = db
	logger.Debug("Local database ready", zap.String("path", dbPath))
	return db, nil
}

func GetDB() *sql.DB {
	return DBClient
}

// CloseDB closes the shared connection and forgets it.
func CloseDB() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
