// Package cryptox holds the stateless crypto primitives used by the content
// store, the publisher and the sync transport: XChaCha20-Poly1305 sealing,
// Argon2id key derivation and BLAKE2b hashing.
package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// Algorithm identifies envelopes produced by this package.
	Algorithm = "xcha-argon2id13"

	// KeySize is the length of every symmetric key in bytes.
	KeySize = chacha20poly1305.KeySize

	// NonceSize is the XChaCha20 nonce length.
	NonceSize = chacha20poly1305.NonceSizeX

	// SaltSize is the length of salts passed to DeriveMasterKey.
	SaltSize = 16
)

var ErrKeySize = errors.New("invalid key size")

// MakeVerifier returns the value the server stores to check a login without
// ever seeing the master key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey stretches a password into a KeySize key with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// GenerateSalt returns SaltSize random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Hash returns the hex encoded BLAKE2b-256 digest of data. Attachment blobs
// are addressed by this value.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrKeySize, len(key))
	}
	return chacha20poly1305.NewX(key)
}

// Encrypt seals plaintext with a fresh random nonce. The returned ciphertext
// carries the 16 byte Poly1305 tag at its end.
func Encrypt(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any tampering, a wrong key
// or a wrong nonce results in an error.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size %d", len(nonce))
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

// EncryptJSON serializes v to JSON and seals it with Encrypt.
//
// Example:
//
//	key := cryptox.DeriveMasterKey([]byte("password"), salt)
//	ciphertext, nonce, err := cryptox.EncryptJSON(item, key)
func EncryptJSON(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return Encrypt(key, plaintext)
}

// DecryptJSON opens ciphertext and unmarshals the JSON it contains into v.
func DecryptJSON(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := Decrypt(key, nonce, ciphertext)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
