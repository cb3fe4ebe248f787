package secrets

import (
	"context"
	"fmt"
	"strings"
)

var credentialSuffixes = []string{"_token", "_secret", "_password", "_api_key"}

// IsCredentialKey reports whether a settings key holds a credential. Such
// keys are sealed at rest and never returned by settings reads.
func IsCredentialKey(key string) bool {
	k := strings.ToLower(key)
	for _, suffix := range credentialSuffixes {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

// KV is the slice of the settings store the vault needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Vault stores credentials in the settings table, sealed when a Sealer is
// available. With a nil Sealer values pass through as plaintext.
type Vault struct {
	kv     KV
	sealer *Sealer
}

func NewVault(kv KV, sealer *Sealer) *Vault {
	return &Vault{kv: kv, sealer: sealer}
}

func (v *Vault) Put(ctx context.Context, key, value string) error {
	stored := value
	if v.sealer != nil {
		sealed, err := v.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("seal %q: %w", key, err)
		}
		stored = sealed
	}
	return v.kv.Set(ctx, key, stored)
}

// Get returns the plaintext credential. Lookup errors from the store,
// including its not-found error, are returned as-is.
func (v *Vault) Get(ctx context.Context, key string) (string, error) {
	stored, err := v.kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !IsSealed(stored) {
		return stored, nil
	}
	if v.sealer == nil {
		return "", fmt.Errorf("open %q: %w", key, ErrNoKey)
	}
	plain, err := v.sealer.Open(stored)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}
	return plain, nil
}

func (v *Vault) Delete(ctx context.Context, key string) error {
	return v.kv.Delete(ctx, key)
}
