// Package keys stores provider API keys in the OS keychain with an environment fallback.
package keys

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/multiai/cli/internal/ai"
	"github.com/zalando/go-keyring"
)

const (
	// Service is the keychain service name.
	Service = "multiai"

	// DisableEnv turns the keychain off when set to a non-empty value.
	DisableEnv = "MULTIAI_KEYRING_DISABLED"
)

// ErrKeyringDisabled is returned by writes while the keychain is turned off.
var ErrKeyringDisabled = errors.New("keychain is disabled (" + DisableEnv + " is set); export the provider's environment variable instead")

// Source tells where a key was found.
type Source string

const (
	SourceNone    Source = ""
	SourceKeyring Source = "keychain"
	SourceEnv     Source = "env"
)

// Account is the keychain account holding a provider's key.
func Account(provider string) string {
	return provider + "_apiKey"
}

// Store reads keys from the keychain, then the environment.
type Store struct {
	disabled bool
	getenv   func(string) string
}

// New returns a Store honoring MULTIAI_KEYRING_DISABLED.
func New() *Store {
	return &Store{disabled: os.Getenv(DisableEnv) != "", getenv: os.Getenv}
}

// Get returns the key for provider, or "" when none is configured.
func (s *Store) Get(ctx context.Context, provider string) (string, error) {
	key, _, err := s.Lookup(ctx, provider)
	return key, err
}

// Lookup returns the key and where it came from.
func (s *Store) Lookup(_ context.Context, provider string) (string, Source, error) {
	if !s.disabled {
		key, err := keyring.Get(Service, Account(provider))
		switch {
		case err == nil && key != "":
			return key, SourceKeyring, nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound):
			// An unavailable keychain still leaves the environment.
			if v := s.getenv(ai.EnvVar(provider)); v != "" {
				return v, SourceEnv, nil
			}
			return "", SourceNone, fmt.Errorf("failed to read key for %s: %w", provider, err)
		}
	}
	if v := s.getenv(ai.EnvVar(provider)); v != "" {
		return v, SourceEnv, nil
	}
	return "", SourceNone, nil
}

// Set stores key for provider in the keychain.
func (s *Store) Set(_ context.Context, provider, key string) error {
	if s.disabled {
		return ErrKeyringDisabled
	}
	if err := keyring.Set(Service, Account(provider), key); err != nil {
		return fmt.Errorf("failed to store key for %s: %w", provider, err)
	}
	return nil
}

// Delete removes the keychain entry for provider. A missing entry is not an error.
func (s *Store) Delete(_ context.Context, provider string) error {
	if s.disabled {
		return nil
	}
	if err := keyring.Delete(Service, Account(provider)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete key for %s: %w", provider, err)
	}
	return nil
}
