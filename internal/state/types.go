package state

import (
	"errors"
	"time"
)

// #region snapshot
// Snapshot is a persisted set of sampled states together with how they were
// drawn. Contexts are stored raw and re-normalized on load.
type Snapshot struct {
	ID           string
	ExpressionID string
	Seed         uint64
	RegimeJSON   string
	CreatedAt    time.Time
	Contexts     []PsychState
}

// SnapshotInfo is a Snapshot row without its contexts.
type SnapshotInfo struct {
	ID           string    `json:"id"`
	ExpressionID string    `json:"expression_id"`
	Seed         uint64    `json:"seed"`
	SampleCount  int       `json:"sample_count"`
	RegimeJSON   string    `json:"regime_json,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// #endregion snapshot

// #region errors
// ErrSnapshotNotFound is returned by Store.Load for unknown ids.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// #endregion errors
