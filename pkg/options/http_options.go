package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HTTPOptions)(nil)

// HTTPOptions contains configuration items related to HTTP server startup.
type HTTPOptions struct {
	// Addr is the server bind address and port.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReadTimeout and WriteTimeout bound slow or stalled device connections.
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// ShutdownTimeout bounds the graceful drain on exit.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewHTTPOptions creates an HTTPOptions object with default parameters.
func NewHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Addr:            "0.0.0.0:8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HTTPOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the HTTP server to the specified FlagSet.
func (o *HTTPOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.ReadTimeout, "http.read-timeout", o.ReadTimeout, "Maximum duration for reading an entire request.")
	fs.DurationVar(&o.WriteTimeout, "http.write-timeout", o.WriteTimeout, "Maximum duration before timing out response writes.")
	fs.DurationVar(&o.ShutdownTimeout, "http.shutdown-timeout", o.ShutdownTimeout, "Grace period for draining connections on shutdown.")
}
