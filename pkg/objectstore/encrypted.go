package objectstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/tagdb/tagdb/pkg/dberr"
)

// EncryptionKeySize is the required AES-256 key length.
const EncryptionKeySize = 32

// EncryptedBackend wraps another Store, transparently encrypting every
// blob with AES-256-GCM before it reaches the backend and decrypting it
// on the way out. Each write gets a fresh random nonce, prepended to the
// ciphertext: nonce(12) || AEAD(nonce, plaintext). Keys/Rev/Close pass
// straight through since iteration only needs key/size/timestamp
// metadata, which the wrapper never touches.
type EncryptedBackend struct {
	backend Store
	gcm     cipher.AEAD
}

// NewEncryptedBackend wraps backend with AES-256-GCM encryption using key,
// which must be exactly EncryptionKeySize bytes.
func NewEncryptedBackend(backend Store, key []byte) (*EncryptedBackend, error) {
	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("objectstore: encryption key must be %d bytes, got %d", EncryptionKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create GCM: %w", err)
	}

	return &EncryptedBackend{backend: backend, gcm: gcm}, nil
}

func (e *EncryptedBackend) Set(ctx context.Context, existingKey *uint32, data []byte) (uint32, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return 0, dberr.Wrap(dberr.Unknown, "generate nonce", err)
	}
	ciphertext := e.gcm.Seal(nonce, nonce, data, nil)
	return e.backend.Set(ctx, existingKey, ciphertext)
}

func (e *EncryptedBackend) Get(ctx context.Context, key uint32) ([]byte, bool, error) {
	ciphertext, ok, err := e.backend.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	nonceSize := e.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, true, dberr.New(dberr.Unknown, "ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, true, dberr.Wrap(dberr.Unknown, "decrypt blob", err)
	}
	return plaintext, true, nil
}

func (e *EncryptedBackend) Keys(ctx context.Context) (<-chan Record, error) {
	return e.backend.Keys(ctx)
}

func (e *EncryptedBackend) Rev(ctx context.Context) (<-chan Record, error) {
	return e.backend.Rev(ctx)
}

// Clone wraps a clone of the underlying backend with the same cipher.
func (e *EncryptedBackend) Clone() Store {
	return &EncryptedBackend{backend: e.backend.Clone(), gcm: e.gcm}
}

func (e *EncryptedBackend) Close() error { return e.backend.Close() }

var _ Store = (*EncryptedBackend)(nil)
