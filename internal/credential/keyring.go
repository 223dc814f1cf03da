package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "todoshare"

// DatabaseDSNKey holds the postgres connection string.
const DatabaseDSNKey = "database-dsn"

// ErrNotFound is returned when the key has no stored value.
var ErrNotFound = errors.New("credential: not found")

// Vault reads and writes secrets in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// Open returns a Vault on the system keyring.
func Open() (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/todoshare/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("todoshare-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Vault{ring: ring}, nil
}

// NewVault wraps an existing keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Get retrieves the value stored under key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key.
func (v *Vault) Set(key, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "todoshare " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (v *Vault) Delete(key string) error {
	if err := v.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// ResolveDSN returns configured when set, otherwise the DSN stored in
// the vault.
func (v *Vault) ResolveDSN(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	dsn, err := v.Get(DatabaseDSNKey)
	if err != nil {
		return "", fmt.Errorf("no store.dsn configured and none in keyring: %w", err)
	}
	return dsn, nil
}
