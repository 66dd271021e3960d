package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service portal passwords are stored under.
const DefaultService = "myfuelportal"

var ErrNotFound = errors.New("no password stored for this account")

// Keyring stores portal passwords in the OS keyring, keyed by username.
type Keyring struct {
	Service string
}

func NewKeyring() Keyring {
	return Keyring{Service: DefaultService}
}

func (k Keyring) service() string {
	if k.Service == "" {
		return DefaultService
	}
	return k.Service
}

func (k Keyring) Lookup(username string) (string, error) {
	password, err := keyring.Get(k.service(), username)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup: %w", err)
	}
	return password, nil
}

func (k Keyring) Store(username, password string) error {
	if username == "" {
		return fmt.Errorf("keyring store: username is empty")
	}
	err := keyring.Set(k.service(), username, password)
	if err != nil {
		return fmt.Errorf("keyring store: %w", err)
	}
	return nil
}

func (k Keyring) Delete(username string) error {
	err := keyring.Delete(k.service(), username)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// Resolve returns password if it is set, otherwise it looks the username up
// in the keyring.
func (k Keyring) Resolve(username, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	return k.Lookup(username)
}
