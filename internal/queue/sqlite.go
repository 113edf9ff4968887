package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createCapturesTable = `
CREATE TABLE IF NOT EXISTS captures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	center_frequency REAL NOT NULL,
	signal_frequency REAL NOT NULL,
	power_db REAL NOT NULL,
	bandwidth REAL NOT NULL,
	timestamp TEXT NOT NULL,
	sample_rate INTEGER NOT NULL,
	iq_data BLOB NOT NULL
)`

// SQLiteSink persists capture metadata (and the narrowband IQ payload)
// to a local SQLite database, for offline review without a broker.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if necessary) a SQLite database at
// path and ensures the captures table exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(createCapturesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create captures table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Put inserts rec as a new row. iq_data is stored as a JSON array of
// [real, imag] pairs; this sink favors queryable metadata over a
// compact binary encoding.
func (s *SQLiteSink) Put(ctx context.Context, rec Record) error {
	iqJSON, err := encodeIQ(rec.IQData)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO captures (center_frequency, signal_frequency, power_db, bandwidth, timestamp, sample_rate, iq_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CenterFrequency, rec.SignalFrequency, rec.PowerDB, rec.Bandwidth, rec.Timestamp, rec.SampleRate, iqJSON,
	)
	return err
}

// Get is unsupported: this sink is a durable record of what was
// captured, not a work queue for a consumer.
func (s *SQLiteSink) Get(ctx context.Context) (Record, bool, error) {
	return Record{}, false, nil
}

// Empty always reports true for the same reason.
func (s *SQLiteSink) Empty() bool { return true }

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func encodeIQ(iq []complex64) ([]byte, error) {
	pairs := make([][2]float32, len(iq))
	for i, s := range iq {
		pairs[i] = [2]float32{real(s), imag(s)}
	}
	return json.Marshal(pairs)
}
