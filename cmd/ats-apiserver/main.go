package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/atsinspect/cmd/ats-apiserver/app"
)

func main() {
	app.NewApp().Run()
}
