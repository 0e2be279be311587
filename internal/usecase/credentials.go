package usecase

import (
	"context"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"crewdesk/internal/domain"
)

// Credentials implements domain.CredentialValidator against the configured
// connection record. Username comparison is constant-time; passwords are
// checked with bcrypt, falling back to constant-time plaintext comparison
// for legacy rows whose stored value is not a bcrypt hash.
type Credentials struct {
	conns domain.ConnectionStore
}

// NewCredentials builds a validator over the connection store.
func NewCredentials(conns domain.ConnectionStore) *Credentials {
	return &Credentials{conns: conns}
}

// Validate returns the matching connection or domain.ErrAuthInvalid.
func (c *Credentials) Validate(ctx context.Context, username, password string) (*domain.Connection, error) {
	conn, err := c.conns.Get(ctx)
	if err != nil {
		return nil, domain.ErrAuthInvalid
	}

	userOK := subtle.ConstantTimeCompare([]byte(conn.Username), []byte(username)) == 1

	passOK := false
	if isBcryptHash(conn.PasswordHash) {
		passOK = bcrypt.CompareHashAndPassword([]byte(conn.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(conn.PasswordHash), []byte(password)) == 1
	}

	if !userOK || !passOK {
		return nil, domain.ErrAuthInvalid
	}
	return conn, nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
