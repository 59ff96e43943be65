package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
)

// KeySize is the AES-256 key length used for sealing.
const KeySize = 32

var ErrCiphertextTooShort = errors.New("ciphertext too short")

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key. The random 12-byte nonce
// is prepended to the returned ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Any tampering, truncation or wrong key yields an error.
func Open(key, sealed []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	n := aesgcm.NonceSize()
	if len(sealed) < n+aesgcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	return aesgcm.Open(nil, sealed[:n], sealed[n:], nil)
}

// SealJSON marshals v to JSON and seals it.
func SealJSON(key []byte, v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plaintext)
	return Seal(key, plaintext)
}

// OpenJSON opens sealed and unmarshals the plaintext into v.
func OpenJSON(key, sealed []byte, v any) error {
	plaintext, err := Open(key, sealed)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)
	return json.Unmarshal(plaintext, v)
}

// LoadOrCreateKey reads a KeySize-byte key from path, creating it with fresh
// random bytes and 0600 permissions when it does not exist yet.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s: expected %d bytes, got %d", path, KeySize, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}

	key = common.GenerateRandByteArray(KeySize)
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}
