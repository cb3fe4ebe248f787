package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

type MappingStore struct {
	db *sql.DB
}

func NewMappingStore(db *sql.DB) *MappingStore {
	return &MappingStore{db: db}
}

// Set upserts an override. An empty target is stored as-is and means
// "cleared", which is not the same as having no row.
func (s *MappingStore) Set(ctx context.Context, kind model.MappingKind, externalID, target string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mappings (kind, external_id, target, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, external_id) DO UPDATE SET target = excluded.target, updated_at = excluded.updated_at`,
		kind, externalID, target, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s mapping %q: %w", kind, externalID, err)
	}
	return nil
}

// Get reports the target for one external id and whether a row exists.
func (s *MappingStore) Get(ctx context.Context, kind model.MappingKind, externalID string) (string, bool, error) {
	var target string
	err := s.db.QueryRowContext(ctx,
		`SELECT target FROM mappings WHERE kind = ? AND external_id = ?`, kind, externalID,
	).Scan(&target)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s mapping %q: %w", kind, externalID, err)
	}
	return target, true, nil
}

func (s *MappingStore) Delete(ctx context.Context, kind model.MappingKind, externalID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE kind = ? AND external_id = ?`, kind, externalID)
	if err != nil {
		return fmt.Errorf("delete %s mapping %q: %w", kind, externalID, err)
	}
	return nil
}

// List returns every override of one kind keyed by external id.
func (s *MappingStore) List(ctx context.Context, kind model.MappingKind) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, target FROM mappings WHERE kind = ?`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s mappings: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, target string
		if err := rows.Scan(&id, &target); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out[id] = target
	}
	return out, rows.Err()
}

func (s *MappingStore) ListAll(ctx context.Context) ([]model.Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, external_id, target, updated_at FROM mappings ORDER BY kind, external_id`)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []model.Mapping
	for rows.Next() {
		var m model.Mapping
		if err := rows.Scan(&m.Kind, &m.ExternalID, &m.Target, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
