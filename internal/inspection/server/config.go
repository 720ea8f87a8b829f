package server

import "github.com/autopeer-io/atsinspect/pkg/options"

type Config struct {
	HttpOptions *options.HttpOptions
}
