package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"crewdesk/internal/domain"
)

func TestCredentialsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("p@ss"), bcrypt.MinCost)
	require.NoError(t, err)

	conns := &stubConns{conn: domain.Connection{Username: "svc", PasswordHash: string(hash)}}
	creds := NewCredentials(conns)

	conn, err := creds.Validate(context.Background(), "svc", "p@ss")
	require.NoError(t, err)
	assert.Equal(t, "svc", conn.Username)

	_, err = creds.Validate(context.Background(), "svc", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestCredentialsPlaintextFallback(t *testing.T) {
	conns := &stubConns{conn: domain.Connection{Username: "svc", PasswordHash: "p@ss"}}
	creds := NewCredentials(conns)

	_, err := creds.Validate(context.Background(), "svc", "p@ss")
	require.NoError(t, err)

	_, err = creds.Validate(context.Background(), "svc", "nope")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestCredentialsUnknownUser(t *testing.T) {
	conns := &stubConns{conn: domain.Connection{Username: "svc", PasswordHash: "p@ss"}}
	creds := NewCredentials(conns)

	_, err := creds.Validate(context.Background(), "other", "p@ss")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestCredentialsNoConnectionConfigured(t *testing.T) {
	conns := &stubConns{getErr: domain.ErrConnectionNotFound}
	creds := NewCredentials(conns)

	_, err := creds.Validate(context.Background(), "svc", "p@ss")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}
