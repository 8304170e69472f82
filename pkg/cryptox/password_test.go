package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher_HashFormat(t *testing.T) {
	h := NewHasher("pepper")

	hash, err := h.Hash("Password123!")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6)
	require.Equal(t, "argon2id", parts[1])
	require.Equal(t, "v=19", parts[2])
	require.Equal(t, "m=19456,t=2,p=1", parts[3])
	require.NotEmpty(t, parts[4])
	require.NotEmpty(t, parts[5])
}

func TestHasher_UniqueSalts(t *testing.T) {
	h := NewHasher("")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, h.Verify("same", a))
	require.NoError(t, h.Verify("same", b))
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher("pepper")
	hash, err := h.Hash("correct-password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"correct", "correct-password", nil},
		{"case difference", "Correct-Password", ErrPasswordMismatch},
		{"trailing space", "correct-password ", ErrPasswordMismatch},
		{"empty", "", ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Verify(tt.password, hash)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHasher_PepperMatters(t *testing.T) {
	hash, err := NewHasher("one").Hash("secret")
	require.NoError(t, err)

	require.ErrorIs(t, NewHasher("two").Verify("secret", hash), ErrPasswordMismatch)
}

func TestHasher_InvalidHashFormat(t *testing.T) {
	h := NewHasher("")

	for name, encoded := range map[string]string{
		"empty":           "",
		"wrong algorithm": "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing parts":   "$argon2id$v=19$m=19456",
		"bad params":      "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"bad salt":        "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad key":         "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
		"wrong version":   "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, h.Verify("x", encoded), ErrInvalidHash)
		})
	}
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "pepper must be stable across loads")

	none, err := LoadOrCreatePepper("")
	require.NoError(t, err)
	require.Empty(t, none)
}
