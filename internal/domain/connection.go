package domain

import (
	"context"
	"time"
)

// ConnectionStatus is the operator-visible state of the connector link.
type ConnectionStatus string

const (
	ConnConnected    ConnectionStatus = "connected"
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnError        ConnectionStatus = "error"
)

// Connection is the configured Web Connector link for a company file.
// PasswordHash is a bcrypt hash; legacy rows may still hold a plaintext
// password, which the credential validator accepts during migration.
type Connection struct {
	ID             string
	AppName        string
	Username       string
	PasswordHash   string
	CompanyFile    string
	Status         ConnectionStatus
	StatusDetail   string
	ProductVersion string // QuickBooks product/qbXML version reported by the agent
	DirectorySync  bool   // enable the one-shot employee directory pull
	UpdatedAt      time.Time
}

// ConnectionStore reads and patches the connector configuration. Only the
// status and version fields are ever written by the protocol core.
type ConnectionStore interface {
	Get(ctx context.Context) (*Connection, error)
	UpdateStatus(ctx context.Context, status ConnectionStatus, detail string) error
	SetCompanyFile(ctx context.Context, path, productVersion string) error
}

// CredentialValidator checks presented connector credentials. It returns the
// matching Connection on success and ErrAuthInvalid otherwise.
type CredentialValidator interface {
	Validate(ctx context.Context, username, password string) (*Connection, error)
}
