package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions defines the contract every option group must satisfy so it can be
// composed into an application's flag set and validated before startup.
type IOptions interface {
	// Validate checks the user-supplied values and returns all problems found.
	Validate() []error

	// AddFlags binds the option fields to the given FlagSet.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a valid "host:port" listen address.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}
