package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/modset/internal/codec"
	"github.com/roach88/modset/internal/tree"
)

// Record is one persisted selection row.
type Record struct {
	Namespace string
	NodeID    string
	Token     string
	Seq       int64
}

// Get returns the record for a namespace as node id -> token.
// A namespace with no rows yields an empty, non-nil map.
func (s *Store) Get(ctx context.Context, namespace string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, token FROM state_records
		WHERE namespace = ?
		ORDER BY node_id COLLATE BINARY
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", namespace, err)
	}
	defer rows.Close()

	record := make(map[string]string)
	for rows.Next() {
		var nodeID, token string
		if err := rows.Scan(&nodeID, &token); err != nil {
			return nil, fmt.Errorf("get %q: scan: %w", namespace, err)
		}
		record[nodeID] = token
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get %q: %w", namespace, err)
	}
	return record, nil
}

// Set replaces the whole namespace with record in a single transaction.
// An empty record deletes the namespace.
func (s *Store) Set(ctx context.Context, namespace string, record map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set %q: begin tx: %w", namespace, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM state_records WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("set %q: clear: %w", namespace, err)
	}

	// Insert in key order so seq stamps are deterministic.
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, nodeID := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO state_records (namespace, node_id, token, seq)
			VALUES (?, ?, ?, ?)
		`, namespace, nodeID, record[nodeID], s.clock.Next()); err != nil {
			return fmt.Errorf("set %q: insert %q: %w", namespace, nodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set %q: commit: %w", namespace, err)
	}
	return nil
}

// Namespaces lists every namespace that has at least one row.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT namespace FROM state_records
		ORDER BY namespace COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("list namespaces: scan: %w", err)
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// Records returns every row, optionally restricted to one namespace.
func (s *Store) Records(ctx context.Context, namespace string) ([]Record, error) {
	query := `SELECT namespace, node_id, token, seq FROM state_records`
	var args []any
	if namespace != "" {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}
	query += ` ORDER BY namespace COLLATE BINARY, node_id COLLATE BINARY`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Namespace, &r.NodeID, &r.Token, &r.Seq); err != nil {
			return nil, fmt.Errorf("list records: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Serialize encodes a selection with the canonical tracking-id codec.
func (s *Store) Serialize(ids []tree.TrackingID) (string, error) {
	return codec.SerializeTrackingIDs(ids)
}

// Deserialize decodes a token written by Serialize.
func (s *Store) Deserialize(token string) ([]tree.TrackingID, error) {
	return codec.DeserializeTrackingIDs(token)
}
