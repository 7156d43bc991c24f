package password_test

import (
	"strings"
	"testing"

	"hotel/shared/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "validPassword123"},
		{name: "special characters", password: "P@ssw0rd!#$%^&*()"},
		{name: "unicode", password: "пароль123"},
		{name: "bcrypt limit", password: strings.Repeat("a", 72)},
		{name: "empty", password: "", wantErr: password.ErrEmptyPassword},
		{name: "over bcrypt limit", password: strings.Repeat("a", 100), wantErr: password.ErrHashingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := password.Hash(tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)

				return
			}

			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$2a$"), hash)
			assert.NoError(t, password.Verify(tt.password, hash))
		})
	}
}

func TestVerify(t *testing.T) {
	validHash, err := password.Hash("testPassword123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{name: "match", password: "testPassword123", hash: validHash},
		{name: "wrong password", password: "wrongPassword", hash: validHash, wantErr: password.ErrInvalidPassword},
		{name: "empty password", password: "", hash: validHash, wantErr: password.ErrInvalidPassword},
		{name: "empty hash", password: "testPassword123", hash: "", wantErr: password.ErrInvalidPassword},
		{name: "malformed hash", password: "testPassword123", hash: "invalid_hash", wantErr: password.ErrVerifyingPassword},
		{name: "truncated hash", password: "testPassword123", hash: validHash[:10], wantErr: password.ErrVerifyingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := password.Verify(tt.password, tt.hash)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestHash_Salted(t *testing.T) {
	first, err := password.Hash("testPassword")
	require.NoError(t, err)

	second, err := password.Hash("testPassword")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, password.Verify("testPassword", first))
	assert.NoError(t, password.Verify("testPassword", second))
}

func TestBurn(t *testing.T) {
	assert.NotPanics(t, func() {
		password.Burn("anything")
		password.Burn("")
	})
}
