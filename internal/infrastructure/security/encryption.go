// Package security provides AES encryption utilities
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// keyBytes interprets a key string as either hex-encoded or raw bytes and
// validates the resulting AES key length.
func keyBytes(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("empty encryption key")
	}

	b := []byte(key)
	if len(key) == 32 || len(key) == 48 || len(key) == 64 {
		if decoded, err := hex.DecodeString(key); err == nil &&
			(len(decoded) == 16 || len(decoded) == 24 || len(decoded) == 32) {
			b = decoded
		}
	}

	if len(b) != 16 && len(b) != 24 && len(b) != 32 {
		return nil, errors.New("invalid key length")
	}
	return b, nil
}

// Encrypt encrypts data using AES-GCM with the provided key
func Encrypt(data, key string) (string, error) {
	kb, err := keyBytes(key)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(kb)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts data using AES-GCM with the provided key
func Decrypt(encrypted, key string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	kb, err := keyBytes(key)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(kb)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("invalid ciphertext")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
