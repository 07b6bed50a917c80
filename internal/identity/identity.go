// Package identity handles wallet address validation. An identity is an
// opaque key scoping exactly one ledger; malformed identities are rejected
// before any ledger operation runs.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// addressRegex matches an EVM-style wallet address: 0x + 40 hex chars.
// Example: 0x71C7656EC7ab88b098defB751B7401B5f6d8976F
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ErrInvalidFormat is returned for identities that are not well-formed
// wallet addresses.
var ErrInvalidFormat = errors.New("identity: invalid wallet address format")

// Validate checks that addr is a well-formed wallet address.
func Validate(addr string) error {
	if !addressRegex.MatchString(addr) {
		return fmt.Errorf("%w: %q (expected 0x + 40 hex chars)", ErrInvalidFormat, addr)
	}
	return nil
}

// Normalize validates addr and returns its canonical form. Addresses are
// compared case-insensitively, so the hex body is lowercased to keep one
// storage key per wallet regardless of checksum casing.
func Normalize(addr string) (string, error) {
	if err := Validate(addr); err != nil {
		return "", err
	}
	return "0x" + strings.ToLower(addr[2:]), nil
}

// Short returns the abbreviated display form used in logs and
// notifications: 0x71C7...976F.
func Short(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
