package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists credentials in the certificates table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed credential store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, filename string, data []byte) (bool, error) {
	if err := ValidateFilename(filename); err != nil {
		return false, err
	}
	query := `
		INSERT INTO certificates (filename, data, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (filename) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, filename, data)
	if err != nil {
		return false, fmt.Errorf("save certificate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save certificate rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) Read(ctx context.Context, filename string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM certificates WHERE filename = $1`, filename).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM certificates ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan certificate filename: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return names, nil
}

func (s *PostgresStore) Delete(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM certificates WHERE filename = $1`, filename)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete certificate rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
