// Package app builds the cobra command of a server binary: grouped flags,
// configuration file and environment overrides, option validation and the
// run function.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/atsinspect/pkg/log"
)

// RunFunc is the entry point executed once options are loaded and valid.
type RunFunc func() error

// Option customizes an App.
type Option func(*App)

// App is the main structure of a CLI application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	extractors  map[string]func(context.Context) string

	configFile string
	viper      *viper.Viper
	cmd        *cobra.Command
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithLoggerContextExtractor registers the log fields derived from request
// contexts.
func WithLoggerContextExtractor(fns map[string]func(context.Context) string) Option {
	return func(a *App) { a.extractors = fns }
}

// NewApp creates a new application instance based on the given options.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc, viper: newViper()}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		Args:          a.args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	a.addConfigFlag(namedFlagSets.FlagSet("global"))
	namedFlagSets.FlagSet("global").BoolP("help", "h", false, fmt.Sprintf("help for %s", a.name))

	fs := cmd.Flags()
	for _, f := range namedFlagSets.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	a.cmd = cmd
}

func (a *App) run(cmd *cobra.Command) error {
	if err := a.viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := a.loadConfig(); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.viper.Unmarshal(a.options); err != nil {
			return fmt.Errorf("decode configuration: %w", err)
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.extractors != nil {
		log.SetContextExtractors(a.extractors)
	}
	a.watchConfig()

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Command returns the cobra command of the application.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command with os.Args and exits on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
