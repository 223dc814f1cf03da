package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestVaultRoundTrip(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	if _, err := v.Get(DatabaseDSNKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get empty err = %v, want ErrNotFound", err)
	}
	if err := v.Set(DatabaseDSNKey, "postgres://localhost/todoshare"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := v.Get(DatabaseDSNKey)
	if err != nil || got != "postgres://localhost/todoshare" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := v.Delete(DatabaseDSNKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := v.Get(DatabaseDSNKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}

func TestResolveDSN(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring([]keyring.Item{
		{Key: DatabaseDSNKey, Data: []byte("postgres://from-keyring")},
	}))

	if got, _ := v.ResolveDSN("postgres://configured"); got != "postgres://configured" {
		t.Errorf("configured DSN not preferred: %q", got)
	}
	if got, err := v.ResolveDSN(""); err != nil || got != "postgres://from-keyring" {
		t.Errorf("ResolveDSN(\"\") = %q, %v", got, err)
	}

	empty := NewVault(keyring.NewArrayKeyring(nil))
	if _, err := empty.ResolveDSN(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
