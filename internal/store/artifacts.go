package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Artifact is one cached compiled validator.
type Artifact struct {
	Key          string         `json:"key"`
	TypeName     string         `json:"type"`
	SourceDigest string         `json:"source_digest"`
	Options      map[string]any `json:"options"`
	Code         string         `json:"-"`
	Functions    int            `json:"functions"` // hoisted functions in the program
	SessionID    string         `json:"session_id"`
	Seq          int64          `json:"seq"`
}

// PutArtifact stores a. The seq is assigned by the store and returned.
// Uses ON CONFLICT(key) DO NOTHING: keys are content addresses, so an
// existing row already holds the same artifact and keeps its seq.
func (s *Store) PutArtifact(ctx context.Context, a Artifact) (int64, error) {
	optsJSON, err := marshalOptions(a.Options)
	if err != nil {
		return 0, fmt.Errorf("put artifact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put artifact: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM artifacts WHERE key = ?`, a.Key).Scan(&seq)
	switch {
	case err == nil:
		return seq, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("put artifact: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM artifacts`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("put artifact: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts
		(key, type_name, source_digest, options, code, functions, session_id, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		a.Key,
		a.TypeName,
		a.SourceDigest,
		optsJSON,
		a.Code,
		a.Functions,
		a.SessionID,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("put artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put artifact: commit: %w", err)
	}
	return seq, nil
}

// GetArtifact returns the artifact stored under key.
// Returns false when there is none.
func (s *Store) GetArtifact(ctx context.Context, key string) (Artifact, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, type_name, source_digest, options, code, functions, session_id, seq
		FROM artifacts
		WHERE key = ?
	`, key)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, err
	}
	return a, true, nil
}

// ListArtifacts returns every artifact, optionally only those for
// typeName. Ordered by seq ASC, key COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) when the cache is empty.
func (s *Store) ListArtifacts(ctx context.Context, typeName string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, type_name, source_digest, options, code, functions, session_id, seq
		FROM artifacts
		WHERE ? = '' OR type_name = ?
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`, typeName, typeName)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// ClearArtifacts deletes every artifact and returns how many were removed.
func (s *Store) ClearArtifacts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts`)
	if err != nil {
		return 0, fmt.Errorf("clear artifacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear artifacts: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var (
		a        Artifact
		optsJSON string
	)
	err := row.Scan(&a.Key, &a.TypeName, &a.SourceDigest, &optsJSON, &a.Code, &a.Functions, &a.SessionID, &a.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, err
		}
		return Artifact{}, fmt.Errorf("scan artifact: %w", err)
	}
	if a.Options, err = unmarshalOptions(optsJSON); err != nil {
		return Artifact{}, err
	}
	return a, nil
}
