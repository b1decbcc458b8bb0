package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options contains configuration for the S3-compatible command archive.
type S3Options struct {
	// Enabled toggles archiving of terminal commands to object storage.
	// When disabled, terminal commands are archived to the SQLite store instead.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Region          string `json:"region" mapstructure:"region"`
}

// NewS3Options creates a new S3Options with default values.
func NewS3Options() *S3Options {
	return &S3Options{
		Enabled:    false,
		UseSSL:     true,
		BucketName: "growhub-commands",
		Region:     "us-east-1",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *S3Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}

	if o.Endpoint == "" {
		errs = append(errs, errors.New("s3 endpoint is required when the archive is enabled"))
	}
	if o.BucketName == "" {
		errs = append(errs, errors.New("s3 bucket name is required when the archive is enabled"))
	}

	return errs
}

// AddFlags adds flags for S3Options to the specified FlagSet.
func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "s3.enabled", o.Enabled, "Archive terminal commands to S3-compatible object storage.")
	fs.StringVar(&o.Endpoint, "s3.endpoint", o.Endpoint, "The S3 endpoint host.")
	fs.StringVar(&o.AccessKeyID, "s3.access-key-id", o.AccessKeyID, "The S3 access key ID.")
	fs.StringVar(&o.SecretAccessKey, "s3.secret-access-key", o.SecretAccessKey, "The S3 secret access key.")
	fs.BoolVar(&o.UseSSL, "s3.use-ssl", o.UseSSL, "Use TLS when talking to the S3 endpoint.")
	fs.StringVar(&o.BucketName, "s3.bucket-name", o.BucketName, "The bucket receiving archived commands.")
	fs.StringVar(&o.Region, "s3.region", o.Region, "The S3 region.")
}
