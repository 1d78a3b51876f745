// Package identity implements the Ed25519 detached-signature primitives the
// router attaches to outgoing peer RPCs. Loading an identity from a
// mnemonic or identity file, and parsing a signature header back into its
// parts, are front-end concerns and stay out of this package.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/tagdb/tagdb/pkg/dberr"
)

// Identity is this node's own signing keypair.
type Identity struct {
	id      uint32
	private ed25519.PrivateKey
}

// New generates a fresh Identity for the given local peer id. Intended for
// tests and ephemeral nodes; production nodes load their private key from
// external key material instead.
func New(id uint32) (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Identity{id: id, private: priv}, nil
}

// FromPrivateKey wraps an existing 64-byte Ed25519 private key.
func FromPrivateKey(id uint32, key ed25519.PrivateKey) (*Identity, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return &Identity{id: id, private: key}, nil
}

// ID returns the peer id this identity signs as.
func (i *Identity) ID() uint32 { return i.id }

// PublicKey returns the public half of this identity's keypair.
func (i *Identity) PublicKey() PublicKey {
	pub, ok := i.private.Public().(ed25519.PublicKey)
	if !ok {
		panic("identity: private key produced unexpected public key type")
	}
	return PublicKey{key: pub}
}

// Sign produces a detached signature over message.
func (i *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(i.private, message)
}

// PublicKey is a peer's verification key, as distributed by the (external)
// peer directory.
type PublicKey struct {
	key ed25519.PublicKey
}

// PublicKeyFromBytes wraps a raw 32-byte Ed25519 public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("identity: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return PublicKey{key: ed25519.PublicKey(b)}, nil
}

// Bytes returns the raw public key.
func (p PublicKey) Bytes() []byte { return []byte(p.key) }

// Verify checks a detached signature against message, returning
// dberr.ErrInvalidSignature on mismatch.
func Verify(pub PublicKey, message, sig []byte) error {
	if !ed25519.Verify(pub.key, message, sig) {
		return dberr.ErrInvalidSignature
	}
	return nil
}

// BuildAuthorizationHeader renders the detached-signature header format
// peers exchange on the wire:
//
//	Signature keyId="<id>",algorithm="ed25519",headers="<headers>",signature="<base64>"
//
// Parsing this format back into its parts is an external front-end's job;
// the router only ever produces it.
func BuildAuthorizationHeader(id *Identity, headers []string, signatureB64 string) string {
	return fmt.Sprintf(
		`Signature keyId="%d",algorithm="ed25519",headers="%s",signature="%s"`,
		id.ID(), strings.Join(headers, " "), signatureB64,
	)
}
