// Package main is the entry point for the Lectern course assistant.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/lectern/cmd/lectern/app"
)

func main() {
	app.NewApp().Run()
}
