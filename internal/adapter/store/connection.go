package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crewdesk/internal/domain"
)

// defaultConnectionID: the core routes a single company file; multi-file
// routing is out of scope.
const defaultConnectionID = "default"

// SeedConnection inserts or updates the configured connector credentials.
// Called from startup wiring so config changes take effect on restart.
func (s *Store) SeedConnection(ctx context.Context, conn domain.Connection) error {
	if conn.ID == "" {
		conn.ID = defaultConnectionID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, app_name, username, password_hash, company_file, status, status_detail, product_version, directory_sync, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			app_name = excluded.app_name,
			username = excluded.username,
			password_hash = excluded.password_hash,
			directory_sync = excluded.directory_sync,
			updated_at = excluded.updated_at`,
		conn.ID, conn.AppName, conn.Username, conn.PasswordHash, conn.CompanyFile,
		string(domain.ConnDisconnected), "", conn.ProductVersion,
		boolToInt(conn.DirectorySync), s.now().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("%w: seed connection: %v", domain.ErrStore, err)
	}
	return nil
}

// Get returns the configured connection.
func (s *Store) Get(ctx context.Context) (*domain.Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app_name, username, password_hash, company_file, status, status_detail, product_version, directory_sync, updated_at
		FROM connections WHERE id = ?`, defaultConnectionID)

	var c domain.Connection
	var status, updatedAt string
	var dirSync int
	err := row.Scan(&c.ID, &c.AppName, &c.Username, &c.PasswordHash, &c.CompanyFile,
		&status, &c.StatusDetail, &c.ProductVersion, &dirSync, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("%w: get connection: %v", domain.ErrStore, err)
	}
	c.Status = domain.ConnectionStatus(status)
	c.DirectorySync = dirSync != 0
	c.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &c, nil
}

// UpdateStatus patches the operator-visible connection status.
func (s *Store) UpdateStatus(ctx context.Context, status domain.ConnectionStatus, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE connections SET status = ?, status_detail = ?, updated_at = ?
		WHERE id = ?`,
		string(status), truncate(detail, 1000), s.now().Format(timeLayout), defaultConnectionID)
	if err != nil {
		return fmt.Errorf("%w: update status: %v", domain.ErrStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConnectionNotFound
	}
	return nil
}

// SetCompanyFile records the company file path and product version the agent
// reported on its first dispatch. An already-recorded company file is not
// overwritten.
func (s *Store) SetCompanyFile(ctx context.Context, path, productVersion string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE connections SET
			company_file = CASE WHEN company_file = '' THEN ? ELSE company_file END,
			product_version = ?,
			updated_at = ?
		WHERE id = ?`,
		path, productVersion, s.now().Format(timeLayout), defaultConnectionID)
	if err != nil {
		return fmt.Errorf("%w: set company file: %v", domain.ErrStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConnectionNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
