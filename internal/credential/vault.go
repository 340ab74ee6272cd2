package credential

import "fmt"

// ConfigStore is the key/value table settings live in.
type ConfigStore interface {
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
}

// Vault reads and writes settings, sealing keys that end in ".api_key".
type Vault struct {
	store   ConfigStore
	manager *Manager
}

func NewVault(s ConfigStore, m *Manager) *Vault {
	return &Vault{store: s, manager: m}
}

// Set stores value under key, encrypting secrets.
func (v *Vault) Set(key, value string) error {
	if IsSecretKey(key) {
		sealed, err := v.manager.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", key, err)
		}
		value = sealed
	}
	return v.store.SetConfig(key, value)
}

// Get returns the plaintext value for key, or "" when unset.
func (v *Vault) Get(key string) (string, error) {
	stored, err := v.store.GetConfig(key)
	if err != nil {
		return "", err
	}
	if !IsSecretKey(key) {
		return stored, nil
	}
	plain, err := v.manager.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plain, nil
}

// Display returns a value fit for printing: secrets are masked.
func (v *Vault) Display(key string) (string, error) {
	value, err := v.Get(key)
	if err != nil || value == "" || !IsSecretKey(key) {
		return value, err
	}
	return MaskSecret(value), nil
}
