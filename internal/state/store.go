package state

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sample_sets (
	set_id        TEXT PRIMARY KEY,
	expression_id TEXT,
	seed          TEXT NOT NULL,
	regime_json   TEXT,
	axes_json     TEXT NOT NULL,
	sample_count  INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	set_id  TEXT NOT NULL,
	idx     INTEGER NOT NULL,
	values_blob BLOB NOT NULL,
	PRIMARY KEY (set_id, idx),
	FOREIGN KEY (set_id) REFERENCES sample_sets(set_id) ON DELETE CASCADE
);
`

// #endregion schema

// #region store-struct
// Store persists sampled state sets in SQLite so prototype fit can be
// recomputed later without resampling.
type Store struct {
	db    *sql.DB
	model *axis.Model
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string, model *axis.Model) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := initDB(db, dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, model: model}, nil
}

func initDB(db *sql.DB, dbPath string) error {
	if dbPath == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region save
// Save writes a snapshot and its contexts in one transaction. An empty ID is
// replaced with a fresh uuid; the stored id is returned.
func (s *Store) Save(snap Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	names := s.axisOrder()
	axesJSON, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshal axes: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sample_sets (set_id, expression_id, seed, regime_json, axes_json, sample_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		nullIfEmpty(snap.ExpressionID),
		strconv.FormatUint(snap.Seed, 10),
		nullIfEmpty(snap.RegimeJSON),
		string(axesJSON),
		len(snap.Contexts),
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert sample set: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO samples (set_id, idx, values_blob) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, ctx := range snap.Contexts {
		if _, err := stmt.Exec(snap.ID, i, encodeValues(ctx.Values(), names)); err != nil {
			return "", fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return snap.ID, nil
}

// #endregion save

// #region load
// Load reads a snapshot and rebuilds its contexts through the axis model.
func (s *Store) Load(id string) (Snapshot, error) {
	var (
		snap      Snapshot
		exprID    sql.NullString
		regime    sql.NullString
		seed      string
		axesJSON  string
		createdAt string
	)
	err := s.db.QueryRow(
		`SELECT set_id, expression_id, seed, regime_json, axes_json, created_at
		 FROM sample_sets WHERE set_id = ?`, id,
	).Scan(&snap.ID, &exprID, &seed, &regime, &axesJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query sample set: %w", err)
	}
	snap.ExpressionID = exprID.String
	snap.RegimeJSON = regime.String
	if snap.Seed, snap.CreatedAt, err = parseProvenance(id, seed, createdAt); err != nil {
		return Snapshot{}, err
	}

	var names []string
	if err := json.Unmarshal([]byte(axesJSON), &names); err != nil {
		return Snapshot{}, fmt.Errorf("parse axes: %w", err)
	}

	rows, err := s.db.Query(`SELECT values_blob FROM samples WHERE set_id = ? ORDER BY idx ASC`, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return Snapshot{}, fmt.Errorf("scan sample: %w", err)
		}
		values, err := decodeValues(blob, names)
		if err != nil {
			return Snapshot{}, err
		}
		ctx, err := New(s.model, values)
		if err != nil {
			return Snapshot{}, fmt.Errorf("rebuild sample: %w", err)
		}
		snap.Contexts = append(snap.Contexts, ctx)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate samples: %w", err)
	}
	return snap, nil
}

// List returns the most recent snapshots first.
func (s *Store) List(limit int) ([]SnapshotInfo, error) {
	rows, err := s.db.Query(
		`SELECT set_id, expression_id, seed, regime_json, sample_count, created_at
		 FROM sample_sets ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sample sets: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info      SnapshotInfo
			exprID    sql.NullString
			regime    sql.NullString
			seed      string
			createdAt string
		)
		if err := rows.Scan(&info.ID, &exprID, &seed, &regime, &info.SampleCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sample set: %w", err)
		}
		info.ExpressionID = exprID.String
		info.RegimeJSON = regime.String
		var err error
		if info.Seed, info.CreatedAt, err = parseProvenance(info.ID, seed, createdAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a snapshot and its samples.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sample_sets WHERE set_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sample set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return nil
}

// #endregion load

// #region helpers
func parseProvenance(id, seed, createdAt string) (uint64, time.Time, error) {
	n, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse seed of %s: %w", id, err)
	}
	at, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse created_at of %s: %w", id, err)
	}
	return n, at, nil
}

func (s *Store) axisOrder() []string {
	all := s.model.All()
	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name
	}
	return names
}

// encodeValues serializes values in the given axis order as little-endian float64s.
func encodeValues(values map[string]float64, names []string) []byte {
	buf := make([]byte, 8*len(names))
	for i, name := range names {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(values[name]))
	}
	return buf
}

// decodeValues is the inverse of encodeValues.
func decodeValues(blob []byte, names []string) (map[string]float64, error) {
	if len(blob) != 8*len(names) {
		return nil, fmt.Errorf("sample blob: expected %d bytes, got %d", 8*len(names), len(blob))
	}
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
