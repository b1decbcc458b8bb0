package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/growhub-io/growhub/internal/orchestrator"
	"github.com/growhub-io/growhub/pkg/app"
	"github.com/growhub-io/growhub/pkg/log"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

// OrchestratorOptions composes every option group of the orchestrator
// binary. The mapstructure tags mirror the flag prefixes so a config file
// section maps onto the same keys as the flags.
type OrchestratorOptions struct {
	HTTPOptions    *genericoptions.HTTPOptions    `json:"http" mapstructure:"http"`
	MqttOptions    *genericoptions.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	SqliteOptions  *genericoptions.SqliteOptions  `json:"sqlite" mapstructure:"sqlite"`
	S3Options      *genericoptions.S3Options      `json:"s3" mapstructure:"s3"`
	MonitorOptions *genericoptions.MonitorOptions `json:"monitor" mapstructure:"monitor"`
	Log            *log.Options                   `json:"log" mapstructure:"log"`
}

var _ app.CliOptions = (*OrchestratorOptions)(nil)

// NewOrchestratorOptions creates the option set with defaults.
func NewOrchestratorOptions() *OrchestratorOptions {
	return &OrchestratorOptions{
		HTTPOptions:    genericoptions.NewHTTPOptions(),
		MqttOptions:    genericoptions.NewMqttOptions(),
		SqliteOptions:  genericoptions.NewSqliteOptions(),
		S3Options:      genericoptions.NewS3Options(),
		MonitorOptions: genericoptions.NewMonitorOptions(),
		Log:            log.NewOptions(),
	}
}

// AddFlags binds every option group to the flag set.
func (o *OrchestratorOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.SqliteOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.MonitorOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete fills in derived defaults after flags and config are parsed.
func (o *OrchestratorOptions) Complete() error {
	log.Init(o.Log)
	return nil
}

// Validate aggregates the validation errors of every group.
func (o *OrchestratorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.SqliteOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MonitorOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config assembles the server configuration from the validated options.
func (o *OrchestratorOptions) Config() (*orchestrator.Config, error) {
	return &orchestrator.Config{
		HTTPOptions:    o.HTTPOptions,
		MqttOptions:    o.MqttOptions,
		SqliteOptions:  o.SqliteOptions,
		S3Options:      o.S3Options,
		MonitorOptions: o.MonitorOptions,
	}, nil
}
