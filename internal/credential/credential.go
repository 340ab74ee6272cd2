// Package credential keeps provider API keys in the configuration table,
// sealed with AES-256-GCM under a machine-derived key.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

const (
	// EncryptedPrefix marks values as encrypted in storage
	EncryptedPrefix = "enc:v1:"

	// SecretSuffix marks configuration keys whose values are sealed.
	SecretSuffix = ".api_key"

	// SecretEnv, when set, replaces the machine-derived key material.
	SecretEnv = "RECALL_SECRET"
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidFormat    = errors.New("invalid encrypted format")
)

// Manager seals and opens secret values.
type Manager struct {
	aead cipher.AEAD
}

// NewManager creates a manager keyed from $RECALL_SECRET, or from machine
// identifiers when it is unset.
func NewManager() (*Manager, error) {
	material := os.Getenv(SecretEnv)
	if material == "" {
		material = machineEntropy()
	}
	return NewManagerWithKey(material)
}

// NewManagerWithKey creates a manager keyed from the SHA-256 of material.
func NewManagerWithKey(material string) (*Manager, error) {
	key := sha256.Sum256([]byte(material))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Manager{aead: aead}, nil
}

// Encrypt seals plaintext into a storable string. Empty input stays empty.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := m.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value. Values without the prefix pass through so
// keys stored before encryption keep working.
func (m *Manager) Decrypt(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return stored, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrInvalidFormat, err)
	}

	nonceSize := m.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrInvalidFormat
	}

	plaintext, err := m.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEncrypted checks if a value is already encrypted.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// IsSecretKey reports whether a configuration key holds a secret.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, SecretSuffix)
}

func machineEntropy() string {
	var entropy strings.Builder

	hostname, _ := os.Hostname()
	entropy.WriteString(hostname)

	home, _ := os.UserHomeDir()
	entropy.WriteString(home)

	entropy.WriteString(runtime.GOOS)
	entropy.WriteString(runtime.GOARCH)
	entropy.WriteString("recall-credential-v1")

	if uid := os.Getuid(); uid != -1 {
		entropy.WriteString(fmt.Sprintf("uid:%d", uid))
	}
	if username := os.Getenv("USER"); username != "" {
		entropy.WriteString(username)
	}
	return entropy.String()
}

// MaskSecret returns a masked version of a secret for display purposes.
// Shows only the first and last 4 characters if the secret is long enough.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
