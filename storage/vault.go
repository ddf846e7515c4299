package storage

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// SaltKey holds the random salt used to derive the vault key. It is stored in clear.
const SaltKey = "__vault_salt"

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32
)

// Vault encrypts values with a key derived from a passphrase before handing them to the
// wrapped Storage. Keys are left in clear so change notifications still name them.
type Vault struct {
	inner Storage
	key   [keyLength]byte
}

var _ Storage = (*Vault)(nil)

func NewVault(inner Storage, passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, errors.New("[storage.NewVault] passphrase is required")
	}

	salt, err := loadOrCreateSalt(inner)
	if err != nil {
		return nil, err
	}

	v := &Vault{inner: inner}
	copy(v.key[:], argon2.IDKey([]byte(passphrase), salt, 3, 64*1024, 2, keyLength))
	return v, nil
}

func loadOrCreateSalt(inner Storage) ([]byte, error) {
	encoded, err := inner.Get(SaltKey)
	if err == nil {
		salt, decodeErr := base64.RawStdEncoding.DecodeString(encoded)
		if decodeErr != nil || len(salt) != saltLength {
			return nil, fmt.Errorf("[storage.NewVault] salt: %w", ErrCorrupt)
		}
		return salt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("[storage.NewVault] read salt: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("[storage.NewVault] crypto/rand failed: %w", err)
	}
	if err := inner.Set(SaltKey, base64.RawStdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("[storage.NewVault] write salt: %w", err)
	}
	return salt, nil
}

func (v *Vault) Get(key string) (string, error) {
	sealed, err := v.inner.Get(key)
	if err != nil {
		return "", err
	}
	return v.open(sealed)
}

func (v *Vault) Set(key, value string) error {
	return v.SetMany(map[string]string{key: value})
}

func (v *Vault) SetMany(values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, val := range values {
		if strings.EqualFold(k, SaltKey) {
			return fmt.Errorf("[Vault.SetMany] %s is reserved", SaltKey)
		}
		s, err := v.seal(val)
		if err != nil {
			return err
		}
		sealed[k] = s
	}
	return v.inner.SetMany(sealed)
}

func (v *Vault) Remove(keys ...string) error {
	return v.inner.Remove(keys...)
}

func (v *Vault) seal(plain string) (string, error) {
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("[Vault.seal] crypto/rand failed: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (v *Vault) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceLength+secretbox.Overhead {
		return "", ErrCorrupt
	}
	var nonce [nonceLength]byte
	copy(nonce[:], raw[:nonceLength])

	plain, ok := secretbox.Open(nil, raw[nonceLength:], &nonce, &v.key)
	if !ok {
		return "", ErrCorrupt
	}
	return string(plain), nil
}
