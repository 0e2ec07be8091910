// Package secrets resolves credential references from configuration.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringScheme = "keyring:"
	envScheme     = "env:"
)

// ErrNotFound is returned when a referenced secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Resolve returns the credential a reference points to:
//
//	keyring:<service>/<user>  OS keyring entry
//	env:<VAR>                 environment variable
//	anything else             the literal value
func Resolve(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, keyringScheme):
		return fromKeyring(strings.TrimPrefix(ref, keyringScheme))
	case strings.HasPrefix(ref, envScheme):
		name := strings.TrimPrefix(ref, envScheme)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("%w: env %s", ErrNotFound, name)
		}
		return v, nil
	default:
		return ref, nil
	}
}

func fromKeyring(path string) (string, error) {
	service, user, ok := strings.Cut(path, "/")
	if !ok || service == "" || user == "" {
		return "", fmt.Errorf("invalid keyring reference %q, want keyring:<service>/<user>", path)
	}

	secret, err := keyring.Get(service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: keyring %s/%s", ErrNotFound, service, user)
		}
		return "", fmt.Errorf("failed to read keyring %s/%s: %w", service, user, err)
	}
	return secret, nil
}

// Store saves a secret in the OS keyring.
func Store(service, user, secret string) error {
	if err := keyring.Set(service, user, secret); err != nil {
		return fmt.Errorf("failed to write keyring %s/%s: %w", service, user, err)
	}
	return nil
}
