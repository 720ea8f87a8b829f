package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/atsinspect/internal/inspection"
	"github.com/autopeer-io/atsinspect/pkg/app"
	"github.com/autopeer-io/atsinspect/pkg/log"
	"github.com/autopeer-io/atsinspect/pkg/options"
)

type ServerOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	PostgresOptions *options.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	StoreOptions    *options.StoreOptions    `json:"store" mapstructure:"store"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ServerOptions)(nil)

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HttpOptions:     options.NewHttpOptions(),
		MqttOptions:     options.NewMqttOptions(),
		PostgresOptions: options.NewPostgresOptions(),
		StoreOptions:    options.NewStoreOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.PostgresOptions.AddFlags(fss.FlagSet("postgres"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ServerOptions) Complete() error {
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	if o.StoreOptions.Backend == options.StorePostgres {
		errs = append(errs, o.PostgresOptions.Validate()...)
	}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) Config() (*inspection.Config, error) {
	return &inspection.Config{
		HttpOptions:     o.HttpOptions,
		MqttOptions:     o.MqttOptions,
		PostgresOptions: o.PostgresOptions,
		StoreOptions:    o.StoreOptions,
	}, nil
}
