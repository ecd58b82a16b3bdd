package commands

import (
	"errors"
	"fmt"

	"github.com/LeadsPlus/rets/pkg/retsclient"
	"github.com/zalando/go-keyring"
)

const keyringService = "rets"

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// keyringUser identifies a password by its session key.
func keyringUser(loginURL, username string) (string, error) {
	return retsclient.SessionKey(loginURL, username)
}

// savePassword stores the password in the system keyring.
func savePassword(loginURL, username, password string) error {
	user, err := keyringUser(loginURL, username)
	if err != nil {
		return err
	}

	err = keyringSet(keyringService, user, password)
	if err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}

	return nil
}

// lookupPassword returns the stored password, or "" when the keyring has
// none or is unavailable.
func lookupPassword(loginURL, username string) string {
	if loginURL == "" || username == "" {
		return ""
	}

	user, err := keyringUser(loginURL, username)
	if err != nil {
		return ""
	}

	password, err := keyringGet(keyringService, user)
	if err != nil {
		return ""
	}

	return password
}

// deletePassword removes a stored password. A missing entry is not an error.
func deletePassword(loginURL, username string) error {
	if loginURL == "" || username == "" {
		return nil
	}

	user, err := keyringUser(loginURL, username)
	if err != nil {
		return err
	}

	err = keyringDelete(keyringService, user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}

	return nil
}
