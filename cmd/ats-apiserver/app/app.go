package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/atsinspect/cmd/ats-apiserver/app/options"
	apihttp "github.com/autopeer-io/atsinspect/internal/inspection/server/http"
	"github.com/autopeer-io/atsinspect/pkg/app"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

const (
	commandName = "ats-apiserver"
	commandDesc = `The ATS API server records the visual and functional inspections of
vehicles at an automated testing station and completes a test instance as soon
as both inspections are done. Lifecycle events can be published to MQTT.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Launch the ATS inspection API server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithLoggerContextExtractor(apihttp.LogExtractors()),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewInspectionServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create inspection server: %w", err)
		}

		return server.Run(ctx)
	}
}
