// Copyright 2026 The GrowHub Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/growhub-io/growhub/pkg/log"
)

// CliOptions is the contract for an application's composed option groups.
type CliOptions interface {
	// AddFlags binds all option fields to the command's flag set.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in any fields left unset after flag and config parsing.
	Complete() error

	// Validate checks all option groups and aggregates their errors.
	Validate() error
}

// RunFunc is the application's entry function, invoked once options are
// parsed, completed, and validated.
type RunFunc func() error

// App wraps a cobra command with config-file loading, environment binding,
// and option validation.
type App struct {
	name        string
	short       string
	description string
	options     CliOptions
	run         RunFunc
	watchConfig bool

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long command description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the composed option groups.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the application entry function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.run = run }
}

// WithConfigWatch re-applies the config file into the options when it
// changes on disk. Only fields read per-request or per-sweep pick up the
// new values; servers are not restarted.
func WithConfigWatch() Option {
	return func(a *App) { a.watchConfig = true }
}

// NewApp builds the application and its cobra command.
func NewApp(name, short string, opts ...Option) *App {
	a := &App{
		name:  name,
		short: short,
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand()
		},
	}

	fs := cmd.Flags()
	fs.SortFlags = false

	if a.options != nil {
		a.options.AddFlags(fs)
	}
	addConfigFlag(a.name, fs)

	a.cmd = cmd
}

func (a *App) runCommand() error {
	if a.options != nil {
		if err := loadConfig(a.cmd.Flags(), a.options, a.watchConfig); err != nil {
			return err
		}

		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}

		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	log.Info("Starting application", "name", a.name)

	if a.run != nil {
		return a.run()
	}
	return nil
}

// Command exposes the underlying cobra command, e.g. for doc generation.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application.
func (a *App) Run() error {
	return a.cmd.Execute()
}
