// Package cryptox wraps the primitives used by the secure local store:
// argon2id key derivation and AES-GCM sealing of JSON values.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var ErrShortCiphertext = errors.New("ciphertext too short")

// DeriveMasterKey stretches a passphrase into a KeySize key with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptValue serializes v to JSON and encrypts it with AES-GCM under key.
// A fresh random nonce is generated on every call.
//
// key must be 16, 24 or 32 bytes long.
func EncryptValue(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptValue reverses EncryptValue and unmarshals the JSON into v.
func DecryptValue(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

// Seal is EncryptValue with the nonce prepended to the ciphertext, which is
// the layout stored in a single key/value slot.
func Seal(v any, key []byte) ([]byte, error) {
	ciphertext, nonce, err := EncryptValue(v, key)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// Open reverses Seal.
func Open(sealed, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}
	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return ErrShortCiphertext
	}
	return DecryptValue(sealed[ns:], sealed[:ns], key, v)
}
