package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SqliteOptions)(nil)

// SqliteOptions contains configuration for the embedded SQLite store.
type SqliteOptions struct {
	// Path is the database file location. ":memory:" keeps everything in RAM.
	Path string `json:"path" mapstructure:"path"`

	// BusyTimeoutMs is passed through to the sqlite3 driver to wait on locks
	// instead of failing immediately under concurrent writers.
	BusyTimeoutMs int `json:"busy-timeout-ms" mapstructure:"busy-timeout-ms"`
}

// NewSqliteOptions creates a new SqliteOptions with default values.
func NewSqliteOptions() *SqliteOptions {
	return &SqliteOptions{
		Path:          "growhub.db",
		BusyTimeoutMs: 5000,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SqliteOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.Path == "" {
		errs = append(errs, errors.New("sqlite path must not be empty"))
	}
	if o.BusyTimeoutMs < 0 {
		errs = append(errs, errors.New("sqlite busy timeout must not be negative"))
	}

	return errs
}

// AddFlags adds flags for SqliteOptions to the specified FlagSet.
func (o *SqliteOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "sqlite.path", o.Path, "Path to the SQLite database file (':memory:' for in-memory).")
	fs.IntVar(&o.BusyTimeoutMs, "sqlite.busy-timeout-ms", o.BusyTimeoutMs, "SQLite busy timeout in milliseconds.")
}
