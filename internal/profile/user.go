package profile

import (
	"errors"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// User is the local identity consumed by the chat core. It is produced by an
// external authentication step and read here as a plain fact; the core never
// writes it.
type User struct {
	ID       string `toml:"id"`
	Username string `toml:"username"`
	Avatar   string `toml:"avatar"`

	// SecretKey is an optional hex-encoded 32-byte key for the encryption
	// delegate. Empty means content passes through unencrypted.
	SecretKey string `toml:"secret_key"`
}

// LoadUser reads the identity file for a profile. A missing file is not an
// error: it returns (nil, nil) and identity-requiring operations degrade to
// no-ops.
func LoadUser(path string) (*User, error) {
	var u User
	_, err := toml.DecodeFile(path, &u)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, errors.New("profile identity missing id")
	}
	return &u, nil
}
