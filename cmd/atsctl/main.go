package main

import (
	"fmt"
	"os"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/atsinspect/internal/atsctl"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	if err := atsctl.Execute(ctx, atsctl.NewCommand(os.Stdout)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
