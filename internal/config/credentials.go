package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Keys of the credentials file
const (
	KeyUsername       = "Username"
	KeyPassword       = "Password"
	KeyPasswordBcrypt = "PasswordBcrypt"
)

// ServerCredentials - credentials the server checks clients against.
// When PasswordHash is set the password is checked with bcrypt, otherwise byte-for-byte.
type ServerCredentials struct {
	Username     string
	Password     string
	PasswordHash []byte
}

// VerifyUsername - byte-for-byte comparison
func (c *ServerCredentials) VerifyUsername(username []byte) bool {
	return bytes.Equal([]byte(c.Username), username)
}

// VerifyPassword - bcrypt or byte-for-byte comparison
func (c *ServerCredentials) VerifyPassword(password []byte) bool {
	if len(c.PasswordHash) > 0 {
		return bcrypt.CompareHashAndPassword(c.PasswordHash, password) == nil
	}
	return bytes.Equal([]byte(c.Password), password)
}

// LoadCredentials - read a credentials file:
//
//	Username=alice
//	Password=secret
//
// or `PasswordBcrypt=<hash>` instead of `Password=`. Blank lines and `#` comments are ignored.
func LoadCredentials(path string) (*ServerCredentials, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	credentials, err := ParseCredentials(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return credentials, nil
}

// ParseCredentials - parse the credentials file format from `reader`
func ParseCredentials(reader io.Reader) (*ServerCredentials, error) {
	var credentials ServerCredentials
	seen := map[string]bool{}
	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key=value", lineNumber)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if seen[key] {
			return nil, fmt.Errorf("line %d: duplicate %s", lineNumber, key)
		}
		seen[key] = true
		switch key {
		case KeyUsername:
			credentials.Username = value
		case KeyPassword:
			credentials.Password = value
		case KeyPasswordBcrypt:
			if _, err := bcrypt.Cost([]byte(value)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNumber, key, err)
			}
			credentials.PasswordHash = []byte(value)
		default:
			return nil, fmt.Errorf("line %d: unknown key %q", lineNumber, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !seen[KeyUsername] {
		return nil, fmt.Errorf("missing %s", KeyUsername)
	}
	if seen[KeyPassword] == seen[KeyPasswordBcrypt] {
		return nil, fmt.Errorf("exactly one of %s and %s is required", KeyPassword, KeyPasswordBcrypt)
	}
	return &credentials, nil
}

// HashPassword - bcrypt hash for a `PasswordBcrypt=` line
func HashPassword(password []byte, cost int) ([]byte, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword(password, cost)
}
