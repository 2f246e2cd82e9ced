// Package database persists market data, generated signals, executed trades
// and the model version history in PostgreSQL.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"tradefusion/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			tick_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
			UNIQUE (symbol, timeframe, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			signal_type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			entry_price DOUBLE PRECISION,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			risk_reward_ratio DOUBLE PRECISION,
			metrics JSONB,
			metadata JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			order_id BIGINT PRIMARY KEY,
			signal_id TEXT REFERENCES signals(id),
			symbol TEXT NOT NULL,
			order_type TEXT NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			sl DOUBLE PRECISION,
			tp DOUBLE PRECISION,
			opened_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS model_versions (
			version INT PRIMARY KEY,
			trained_at TIMESTAMP NOT NULL,
			loss DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL,
			examples INT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCandles upserts a batch of candles. Re-fetched bars overwrite the
// stored row so late corrections from the data feed win.
func (db *DB) SaveCandles(symbol, timeframe string, candles []models.Candle) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume, tick_volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe, timestamp)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			tick_volume = EXCLUDED.tick_volume
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume, c.TickVolume); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCandles returns up to limit most recent candles in ascending
// timestamp order, ready for indicator computation.
func (db *DB) LoadCandles(symbol, timeframe string, limit int) ([]models.Candle, error) {
	rows, err := db.Query(`
		SELECT timestamp, open, high, low, close, volume, tick_volume
		FROM (
			SELECT timestamp, open, high, low, close, volume, tick_volume
			FROM candles
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY timestamp DESC
			LIMIT $3
		) recent
		ORDER BY timestamp ASC
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.TickVolume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// SaveSignal stores a fused signal with its factor breakdown and metadata.
func (db *DB) SaveSignal(sig models.Signal) error {
	metrics, err := json.Marshal(sig.Metrics)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(sig.Metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO signals (
			id, symbol, timeframe, timestamp, signal_type, confidence,
			entry_price, stop_loss, take_profit, risk_reward_ratio, metrics, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		sig.ID, sig.Symbol, sig.Timeframe, sig.Timestamp, sig.Type, sig.Confidence,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.RiskRewardRatio, metrics, metadata)

	return err
}

// RecentSignals returns the latest stored signals for a symbol, newest first.
func (db *DB) RecentSignals(symbol string, limit int) ([]models.Signal, error) {
	rows, err := db.Query(`
		SELECT id, symbol, timeframe, timestamp, signal_type, confidence,
			entry_price, stop_loss, take_profit, risk_reward_ratio, metrics, metadata
		FROM signals
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var sig models.Signal
		var metrics, metadata []byte
		if err := rows.Scan(
			&sig.ID, &sig.Symbol, &sig.Timeframe, &sig.Timestamp, &sig.Type, &sig.Confidence,
			&sig.EntryPrice, &sig.StopLoss, &sig.TakeProfit, &sig.RiskRewardRatio, &metrics, &metadata,
		); err != nil {
			return nil, err
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &sig.Metrics); err != nil {
				return nil, err
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &sig.Metadata); err != nil {
				return nil, err
			}
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// SaveTrade records an executed order together with the signal it came from.
func (db *DB) SaveTrade(signalID string, req models.OrderRequest, result models.TradeResult) error {
	_, err := db.Exec(`
		INSERT INTO trades (order_id, signal_id, symbol, order_type, volume, price, sl, tp, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		result.Ticket, signalID, req.Symbol, req.Side, req.Volume,
		result.Price, req.StopLoss, req.TakeProfit, time.Now().UTC())

	return err
}

// RecordModelVersion stores training metadata for a saved model version.
func (db *DB) RecordModelVersion(version int, result models.TrainResult) error {
	_, err := db.Exec(`
		INSERT INTO model_versions (version, trained_at, loss, accuracy, examples)
		VALUES ($1, NOW(), $2, $3, $4)
		ON CONFLICT (version) DO NOTHING
	`, version, result.ValLoss, result.ValAccuracy, result.Examples)

	return err
}

// LatestModelVersion returns the highest recorded model version, or 0 when
// no model has been trained yet.
func (db *DB) LatestModelVersion() (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM model_versions`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return version, nil
}
