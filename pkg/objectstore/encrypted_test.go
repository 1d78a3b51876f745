package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptedBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, EncryptionKeySize)
	for i := range key {
		key[i] = byte(i)
	}

	backend := NewMemoryBackend()
	enc, err := NewEncryptedBackend(backend, key)
	require.NoError(t, err)

	plaintext := []byte("confidential document body")
	k, err := enc.Set(ctx, nil, plaintext)
	require.NoError(t, err)

	got, ok, err := enc.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plaintext, got)

	// the wrapped backend must never see plaintext
	raw, ok, err := backend.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, plaintext, raw)
}

func TestEncryptedBackendRejectsWrongKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"too short", 16, true},
		{"too long", 64, true},
		{"exact", EncryptionKeySize, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncryptedBackend(NewMemoryBackend(), make([]byte, tt.keyLen))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEncryptedBackendDifferentKeyFailsToDecrypt(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	key1 := make([]byte, EncryptionKeySize)
	key2 := make([]byte, EncryptionKeySize)
	key2[0] = 1

	enc1, err := NewEncryptedBackend(backend, key1)
	require.NoError(t, err)
	enc2, err := NewEncryptedBackend(backend, key2)
	require.NoError(t, err)

	k, err := enc1.Set(ctx, nil, []byte("secret"))
	require.NoError(t, err)

	_, _, err = enc2.Get(ctx, k)
	require.Error(t, err)
}
