package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"goldpayments/internal/core/domain"

	"golang.org/x/crypto/chacha20poly1305"
)

// Supported vault cipher modes.
const (
	CipherAESGCM            = "aes-256-gcm"
	CipherXChaCha20Poly1305 = "xchacha20-poly1305"
)

const vaultKeySize = 32

// VaultCipher implements ports.TokenCipher over an AEAD keyed from a static
// passphrase. The key is never rotated.
type VaultCipher struct {
	aead      cipher.AEAD
	algorithm string
}

// DeriveVaultKey pads the passphrase with '0' up to 32 bytes, or truncates it.
func DeriveVaultKey(passphrase string) []byte {
	key := make([]byte, vaultKeySize)
	n := copy(key, passphrase)
	for i := n; i < vaultKeySize; i++ {
		key[i] = '0'
	}
	return key
}

// NewVaultCipher creates a cipher for the given mode.
func NewVaultCipher(passphrase, mode string) (*VaultCipher, error) {
	key := DeriveVaultKey(passphrase)

	switch mode {
	case CipherAESGCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("creating cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating GCM: %w", err)
		}
		return &VaultCipher{aead: aead, algorithm: "AES-256"}, nil
	case CipherXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("creating XChaCha20-Poly1305: %w", err)
		}
		return &VaultCipher{aead: aead, algorithm: "XChaCha20-Poly1305"}, nil
	default:
		return nil, fmt.Errorf("unsupported cipher mode %q", mode)
	}
}

// Algorithm returns the display name of the cipher.
func (v *VaultCipher) Algorithm() string {
	return v.algorithm
}

// Encrypt seals plaintext under a freshly drawn nonce.
func (v *VaultCipher) Encrypt(plaintext string) (*domain.EncryptedPayload, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return &domain.EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt opens a payload produced by Encrypt. Any corruption is an error
// and no partial plaintext is returned.
func (v *VaultCipher) Decrypt(payload *domain.EncryptedPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("empty payload")
	}

	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	if len(nonce) != v.aead.NonceSize() {
		return "", fmt.Errorf("nonce must be %d bytes, got %d", v.aead.NonceSize(), len(nonce))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(ciphertext) < v.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}
