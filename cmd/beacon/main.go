package main

import (
	"SchoolBeacon/internal/bootstrap"
	pkg "SchoolBeacon/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()

	app := fx.New(
		pkg.EchoModules,
	)

	app.Run()
}
