// Package credential stores the Dropbox refresh token in the system
// keyring so it does not have to live in the environment or on the
// command line. Explicit configuration always wins; the keyring is a
// fallback.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName     = "email-to-blog"
	refreshTokenKey = "dropbox-refresh-token"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/email-to-blog/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("email-to-blog-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// RefreshToken retrieves the stored Dropbox refresh token.
func RefreshToken() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(refreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("getting refresh token: %w", err)
	}

	return string(item.Data), nil
}

// StoreRefreshToken saves the Dropbox refresh token for later runs.
func StoreRefreshToken(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  refreshTokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}

	return nil
}
